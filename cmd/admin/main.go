package main

import (
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/logging"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/storage"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  grant-admin <group_id> <user_id>   give a member the admin role
  deactivate <group_id>              mark a group inactive
  members <group_id>                 list a group's members
  token <user_id>                    mint a development access token`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load(logging.Discard())
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	command, args := os.Args[1], os.Args[2:]
	if command == "token" {
		if len(args) != 1 {
			fmt.Println("Usage: admin token <user_id>")
			os.Exit(1)
		}
		token, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL).Generate(args[0], "")
		if err != nil {
			log.Fatalf("Error minting token: %v", err)
		}
		fmt.Println(token)
		return
	}

	dsn, err := cfg.PostgresDSN()
	if err != nil {
		log.Fatalf("invalid DATABASE_URL: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	store := storage.NewStorageService(db, nil, logging.Discard()) // No redis needed for admin CLI
	ctx := context.Background()

	switch command {
	case "grant-admin":
		if len(args) != 2 {
			fmt.Println("Usage: admin grant-admin <group_id> <user_id>")
			os.Exit(1)
		}
		if err := store.SetMemberRole(ctx, args[0], args[1], models.GroupRoleAdmin); err != nil {
			log.Fatalf("Error granting admin: %v", err)
		}
		fmt.Printf("User %s is now an admin of group %s.\n", args[1], args[0])
	case "deactivate":
		if len(args) != 1 {
			fmt.Println("Usage: admin deactivate <group_id>")
			os.Exit(1)
		}
		if err := deactivateGroup(ctx, store, args[0]); err != nil {
			log.Fatalf("Error deactivating group: %v", err)
		}
		fmt.Printf("Group %s has been deactivated.\n", args[0])
	case "members":
		if len(args) != 1 {
			fmt.Println("Usage: admin members <group_id>")
			os.Exit(1)
		}
		if err := printMembers(ctx, store, args[0], os.Stdout); err != nil {
			log.Fatalf("Error listing members: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func deactivateGroup(ctx context.Context, s storage.GroupDirectory, groupID string) error {
	_, err := s.UpdateGroup(ctx, groupID, map[string]any{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	})
	return err
}

type memberLister interface {
	storage.MembershipStore
	storage.UserDirectory
}

func printMembers(ctx context.Context, s memberLister, groupID string, w io.Writer) error {
	members, err := s.ListMembers(ctx, groupID)
	if err != nil {
		return err
	}
	users, err := s.GetUsers(ctx, lo.Map(members, func(m models.GroupMember, _ int) string { return m.UserID }))
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"User ID", "Name", "Email", "Role", "Joined"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range members {
		u := users[m.UserID]
		table.Append([]string{m.UserID, u.Name, u.Email, string(m.Role), m.JoinedAt.Format(time.RFC3339)})
	}
	table.Render()
	return nil
}
