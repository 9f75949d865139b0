package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallware/memspace/internal/repository"
	"github.com/recallware/memspace/internal/service"
)

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for an owner",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID, _ := cmd.Flags().GetString("owner")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	authSvc := service.NewAuthService(apiKeyRepo)

	token, key, err := authSvc.CreateAPIKey(ctx, ownerID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":    key.ID,
			"name":  key.Name,
			"owner": key.OwnerID,
			"token": token,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key created for owner %s\n", ownerID)
		fmt.Printf("Key ID: %s\n", key.ID)
		fmt.Printf("Key Name: %s\n", key.Name)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	}

	return nil
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for an owner",
		Long:  "List all API keys belonging to a specific owner",
		RunE:  runAPIKeyList,
	}

	cmd.Flags().StringP("owner", "o", "", "Owner ID (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ownerID, _ := cmd.Flags().GetString("owner")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	keys, err := apiKeyRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(keys))
		for i, key := range keys {
			data[i] = map[string]interface{}{
				"id":         key.ID,
				"name":       key.Name,
				"owner_id":   key.OwnerID,
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(keys) == 0 {
			fmt.Printf("No API keys found for owner %s\n", ownerID)
			return nil
		}
		fmt.Printf("API keys for owner %s:\n", ownerID)
		for _, key := range keys {
			status := "active"
			if key.IsRevoked() {
				status = "revoked"
			}
			fmt.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	keyID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	err = apiKeyRepo.Revoke(ctx, keyID)
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      keyID,
			"revoked": true,
			"message": "API key revoked successfully",
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("API key %s revoked successfully\n", keyID)
	}

	return nil
}
