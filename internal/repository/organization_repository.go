package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Membership status values. Only active memberships grant permissions.
const (
	MembershipActive    = "active"
	MembershipInvited   = "invited"
	MembershipSuspended = "suspended"
)

type Organization struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Membership struct {
	ID             string
	OrganizationID string
	UserID         string
	Role           string
	Status         string
	InvitedBy      *string
	JoinedAt       time.Time
	User           *User
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindByUserID(ctx context.Context, userID string) ([]*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, member *Membership) error
	FindMember(ctx context.Context, orgID, userID string) (*Membership, error)
	FindMembers(ctx context.Context, orgID string) ([]*Membership, error)
	UpdateMemberRole(ctx context.Context, orgID, userID, role string) error
	UpdateMemberStatus(ctx context.Context, orgID, userID, status string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	CountMembersByRole(ctx context.Context, orgID, role string) (int, error)
	DeleteStaleInvites(ctx context.Context, olderThan time.Time) (int, error)
}

type pgOrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &pgOrganizationRepository{pool: pool}
}

func (r *pgOrganizationRepository) Create(ctx context.Context, org *Organization) error {
	query := `
		INSERT INTO organizations (name, slug, description, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.pool.QueryRow(ctx, query, org.Name, org.Slug, org.Description, org.OwnerID).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *pgOrganizationRepository) FindByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, slug, description, owner_id, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	org := &Organization{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Slug, &org.Description, &org.OwnerID,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *pgOrganizationRepository) FindByUserID(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.description, o.owner_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1 AND m.status = $2
		ORDER BY o.created_at
	`
	rows, err := r.pool.Query(ctx, query, userID, MembershipActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Slug, &org.Description, &org.OwnerID,
			&org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *pgOrganizationRepository) Update(ctx context.Context, org *Organization) error {
	query := `
		UPDATE organizations SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.pool.QueryRow(ctx, query, org.ID, org.Name, org.Description).Scan(&org.UpdatedAt)
}

func (r *pgOrganizationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

func (r *pgOrganizationRepository) AddMember(ctx context.Context, member *Membership) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role, status, invited_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at
	`
	return r.pool.QueryRow(ctx, query,
		member.OrganizationID, member.UserID, member.Role, member.Status, member.InvitedBy,
	).Scan(&member.ID, &member.JoinedAt)
}

func (r *pgOrganizationRepository) FindMember(ctx context.Context, orgID, userID string) (*Membership, error) {
	query := `
		SELECT id, organization_id, user_id, role, status, invited_by, joined_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := r.pool.QueryRow(ctx, query, orgID, userID).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Status, &m.InvitedBy, &m.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgOrganizationRepository) FindMembers(ctx context.Context, orgID string) ([]*Membership, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.status, m.invited_by, m.joined_at,
		       u.id, u.email, u.name, u.avatar
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m := &Membership{User: &User{}}
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Status, &m.InvitedBy, &m.JoinedAt,
			&m.User.ID, &m.User.Email, &m.User.Name, &m.User.Avatar,
		); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgOrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	query := `UPDATE organization_members SET role = $3 WHERE organization_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, orgID, userID, role)
	return err
}

func (r *pgOrganizationRepository) UpdateMemberStatus(ctx context.Context, orgID, userID, status string) error {
	query := `UPDATE organization_members SET status = $3 WHERE organization_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, orgID, userID, status)
	return err
}

func (r *pgOrganizationRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, orgID, userID)
	return err
}

func (r *pgOrganizationRepository) CountMembersByRole(ctx context.Context, orgID, role string) (int, error) {
	query := `
		SELECT COUNT(*) FROM organization_members
		WHERE organization_id = $1 AND role = $2 AND status = $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, orgID, role, MembershipActive).Scan(&count)
	return count, err
}

func (r *pgOrganizationRepository) DeleteStaleInvites(ctx context.Context, olderThan time.Time) (int, error) {
	query := `DELETE FROM organization_members WHERE status = $1 AND joined_at < $2`
	tag, err := r.pool.Exec(ctx, query, MembershipInvited, olderThan)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
