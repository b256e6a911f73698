package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	userDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/user"
	"github.com/frahmantamala/safety-hazards/internal/hazardtype"
	hazardTypePostgres "github.com/frahmantamala/safety-hazards/internal/hazardtype/postgres"
	userPostgres "github.com/frahmantamala/safety-hazards/internal/user/postgres"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	clearData    bool
	seedPassword string
)

type seedUser struct {
	Username string
	FullName string
	Role     access.Role
}

var seedUsers = []seedUser{
	{"officer", "Dana Officer", access.RoleSafetyOfficer},
	{"manager1", "Avi Manager", access.RoleSiteManager},
	{"manager2", "Noa Manager", access.RoleSiteManager},
	{"worker1", "Eli Worker", access.RoleFieldWorker},
	{"worker2", "Maya Worker", access.RoleFieldWorker},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed users for every role and the default hazard types for development and testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing hazards and logs before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password given to every seeded user")
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer db.Close()

	gdb, err := initGorm(db)
	if err != nil {
		return err
	}

	if clearData {
		for _, table := range []string{"hazard_logs", "hazards"} {
			if err := gdb.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		lg.Info("cleared hazard data")
	}

	hasher, err := auth.NewHasher(cfg.Security.PasswordAlgorithm)
	if err != nil {
		return err
	}

	users := userPostgres.NewUserRepository(gdb)
	for _, su := range seedUsers {
		cred, err := hasher.Hash(seedPassword, cfg.Security.PasswordIterations)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", su.Username, err)
		}
		row := &userDatamodel.User{
			Username:           su.Username,
			FullName:           su.FullName,
			Role:               su.Role.String(),
			IsActive:           true,
			PasswordHash:       cred.Hash,
			PasswordSalt:       cred.Salt,
			PasswordIterations: cred.Iterations,
			PasswordAlgorithm:  cred.Algorithm,
		}
		if err := users.Upsert(ctx, row); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", su.Username, err)
		}
		lg.Info("seeded user", "username", su.Username, "role", su.Role.String())
	}

	types := hazardtype.NewService(hazardTypePostgres.NewHazardTypeRepository(gdb), lg)
	created, err := types.EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed hazard types: %w", err)
	}

	lg.Info("seed complete", "users", len(seedUsers), "hazard_types_created", created)
	return nil
}
