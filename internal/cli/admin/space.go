package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/recallware/memspace/internal/config"
	"github.com/recallware/memspace/internal/repository"
	"github.com/recallware/memspace/internal/service"
)

func SpaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Manage memory spaces",
		Long:  "Create and list memory spaces",
	}

	cmd.AddCommand(SpaceCreateCmd())
	cmd.AddCommand(SpaceListCmd())

	return cmd
}

func SpaceCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new memory space",
		Long:  "Create a new memory space with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpaceCreate,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("description", "d", "", "Space description")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runSpaceCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	ownerID, _ := cmd.Flags().GetString("owner")
	description, _ := cmd.Flags().GetString("description")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	spaceRepo := repository.NewSpaceRepository(pool)
	spaceSvc := service.NewSpaceService(spaceRepo)

	space, err := spaceSvc.Create(ctx, service.CreateSpaceInput{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         space.ID,
			"name":       space.Name,
			"owner_id":   space.OwnerID,
			"created_at": space.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Space created: %s (%s)\n", space.Name, space.ID)
	}

	return nil
}

func SpaceListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory spaces for an owner",
		Long:  "List all memory spaces belonging to a specific owner",
		RunE:  runSpaceList,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runSpaceList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID, _ := cmd.Flags().GetString("owner")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	spaceRepo := repository.NewSpaceRepository(pool)
	spaces, err := spaceRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list spaces: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(spaces))
		for i, space := range spaces {
			data[i] = map[string]interface{}{
				"id":          space.ID,
				"name":        space.Name,
				"owner_id":    space.OwnerID,
				"description": space.Description,
				"created_at":  space.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(spaces) == 0 {
			fmt.Printf("No spaces found for owner %s\n", ownerID)
			return nil
		}
		fmt.Printf("Spaces for owner %s:\n", ownerID)
		for _, space := range spaces {
			fmt.Printf("  %s: %s (created: %s)\n", space.ID, space.Name, space.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
