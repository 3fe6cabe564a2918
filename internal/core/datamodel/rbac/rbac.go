package rbac

import "time"

type User struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	FirstName    string    `gorm:"column:first_name"`
	LastName     string    `gorm:"column:last_name"`
	PasswordHash *string   `gorm:"column:password_hash"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Tenant struct {
	ID          string    `gorm:"primaryKey"`
	CompanyName string    `gorm:"column:company_name;not null"`
	Industry    string    `gorm:"column:industry"`
	Country     string    `gorm:"column:country"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// Role is a named permission bundle scoped to one tenant. System roles are
// protected from deletion by tenant admins; the flag grants nothing else.
type Role struct {
	ID           string    `gorm:"primaryKey"`
	TenantID     string    `gorm:"column:tenant_id;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	Description  string    `gorm:"column:description"`
	IsSystemRole bool      `gorm:"column:is_system_role;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission is a global (resource, action) pair; it is not tenant-scoped.
type Permission struct {
	ID          string    `gorm:"primaryKey"`
	Resource    string    `gorm:"column:resource;not null;uniqueIndex:idx_permissions_resource_action"`
	Action      string    `gorm:"column:action;not null;uniqueIndex:idx_permissions_resource_action"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

type RolePermission struct {
	RoleID       string    `gorm:"column:role_id;primaryKey"`
	PermissionID string    `gorm:"column:permission_id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// RoleAssignment grants a user one role within one tenant. A user's
// effective permission set in a tenant is the union across assignments.
type RoleAssignment struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	TenantID  string    `gorm:"column:tenant_id;primaryKey;index"`
	RoleID    string    `gorm:"column:role_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}
