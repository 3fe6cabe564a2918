package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with the permission catalog, system roles and demo users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"role_assignments", "role_permissions", "roles",
				"external_tenant_links", "analysis_jobs", "connections",
				"users", "tenants",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		permissionIDs := seedPermissions(db)
		tenantID := seedTenant(db, "Demo Accounting Co", "accounting", "ID")

		adminRoleID := seedRole(db, tenantID, "admin", "Full tenant administrator", true, permissionIDs, allPermissions())
		analystRoleID := seedRole(db, tenantID, "analyst", "Runs and reviews analyses", true, permissionIDs, []string{
			"connection:read", "connection:refresh",
			"job:create", "job:read", "job:cancel",
		})
		viewerRoleID := seedRole(db, tenantID, "viewer", "Read-only access", true, permissionIDs, []string{
			"connection:read", "job:read",
		})

		seedUser(db, tenantID, "admin@demo.test", "Demo", "Admin", adminRoleID)
		seedUser(db, tenantID, "analyst@demo.test", "Demo", "Analyst", analystRoleID)
		seedUser(db, tenantID, "viewer@demo.test", "Demo", "Viewer", viewerRoleID)

		fmt.Println("Seeding complete. Demo users use password:", seedPassword)
	},
}

const seedPassword = "password"

type permissionSeed struct {
	Resource string
	Action   string
	Desc     string
}

func permissionCatalog() []permissionSeed {
	return []permissionSeed{
		{"connection", "create", "Create connections"},
		{"connection", "read", "View connections"},
		{"connection", "update", "Update connections"},
		{"connection", "delete", "Delete connections"},
		{"connection", "refresh", "Acquire connection tokens"},
		{"job", "create", "Start analysis jobs"},
		{"job", "read", "View analysis jobs"},
		{"job", "cancel", "Cancel analysis jobs"},
		{"role", "manage", "Manage roles and assignments"},
		{"tenant", "manage", "Manage tenant and users"},
	}
}

func allPermissions() []string {
	var keys []string
	for _, p := range permissionCatalog() {
		keys = append(keys, p.Resource+":"+p.Action)
	}
	return keys
}

// seedPermissions upserts the catalog and returns ids keyed by resource:action.
func seedPermissions(db *gorm.DB) map[string]string {
	ids := make(map[string]string)
	for _, p := range permissionCatalog() {
		key := p.Resource + ":" + p.Action

		var id string
		row := db.Raw("SELECT id FROM permissions WHERE resource = ? AND action = ?", p.Resource, p.Action).Row()
		if err := row.Scan(&id); err == nil {
			ids[key] = id
			continue
		}

		id = uuid.NewString()
		if err := db.Exec(
			"INSERT INTO permissions (id, resource, action, description, created_at) VALUES (?, ?, ?, ?, now())",
			id, p.Resource, p.Action, p.Desc,
		).Error; err != nil {
			log.Fatalf("failed to insert permission %s: %v", key, err)
		}
		ids[key] = id
	}
	return ids
}

func seedTenant(db *gorm.DB, companyName, industry, country string) string {
	var id string
	row := db.Raw("SELECT id FROM tenants WHERE company_name = ?", companyName).Row()
	if err := row.Scan(&id); err == nil {
		fmt.Println("tenant already exists:", companyName)
		return id
	}

	id = uuid.NewString()
	if err := db.Exec(
		"INSERT INTO tenants (id, company_name, industry, country, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
		id, companyName, industry, country,
	).Error; err != nil {
		log.Fatalf("failed to insert tenant: %v", err)
	}
	fmt.Println("Seeded tenant:", companyName)
	return id
}

func seedRole(db *gorm.DB, tenantID, name, description string, system bool, permissionIDs map[string]string, grants []string) string {
	var id string
	row := db.Raw("SELECT id FROM roles WHERE tenant_id = ? AND name = ?", tenantID, name).Row()
	if err := row.Scan(&id); err != nil {
		id = uuid.NewString()
		if err := db.Exec(
			"INSERT INTO roles (id, tenant_id, name, description, is_system_role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, now(), now())",
			id, tenantID, name, description, system,
		).Error; err != nil {
			log.Fatalf("failed to insert role %s: %v", name, err)
		}
		fmt.Println("Seeded role:", name)
	}

	for _, grant := range grants {
		pid, ok := permissionIDs[grant]
		if !ok {
			log.Fatalf("unknown permission in role %s: %s", name, grant)
		}

		var exists int
		if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", id, pid).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec(
			"INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, now())",
			id, pid,
		).Error; err != nil {
			log.Fatalf("failed to grant %s to role %s: %v", grant, name, err)
		}
	}

	return id
}

func seedUser(db *gorm.DB, tenantID, email, firstName, lastName, roleID string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)

	var id string
	row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&id); err != nil {
		id = uuid.NewString()
		if err := db.Exec(
			"INSERT INTO users (id, email, first_name, last_name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now())",
			id, email, firstName, lastName, string(hash),
		).Error; err != nil {
			log.Fatalf("failed to insert user %s: %v", email, err)
		}
		fmt.Println("Seeded user:", email)
	}

	var exists int
	if err := db.Raw("SELECT 1 FROM role_assignments WHERE user_id = ? AND tenant_id = ? AND role_id = ?", id, tenantID, roleID).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec(
		"INSERT INTO role_assignments (user_id, tenant_id, role_id, created_at) VALUES (?, ?, ?, now())",
		id, tenantID, roleID,
	).Error; err != nil {
		log.Fatalf("failed to assign role to %s: %v", email, err)
	}
}
