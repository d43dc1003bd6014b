package cmd

import (
	"context"
	"fmt"
	"log"

	"trackanalyzer/config"
	"trackanalyzer/db"
	"trackanalyzer/repository"
	"trackanalyzer/storage"

	"github.com/spf13/cobra"
)

var purgeUserID int64

// purgeCmd removes everything a user ever stored: readings, tracks, the
// account row and the photo objects behind the readings. Runs as an
// operator side-channel, not an API endpoint.
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge all data for a user account",
	Long:  `Deletes a user's readings, tracks and account row in one transaction, then removes the photo objects behind those readings from the bucket.`,
	Run: func(cmd *cobra.Command, args []string) {
		if purgeUserID == 0 {
			log.Fatal("--user is required")
		}

		cfg := config.Load()

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.CloseDB()

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}

		userRepo := repository.NewMySQLUserRepository(db.DB)
		store := storage.NewPhotoStore(storage.GetMinioClient(), cfg.PhotoBucket)
		ctx := context.Background()

		result, err := userRepo.PurgeUserData(ctx, purgeUserID)
		if err != nil {
			log.Fatalf("Purge failed, no rows were deleted: %v", err)
		}

		fmt.Printf("Deleted %d readings, %d tracks, user row removed: %v\n",
			result.ReadingsDeleted, result.TracksDeleted, result.UserDeleted)

		// Blob cleanup after the transaction; a failed removal leaves an
		// orphan that the bucket command can sweep later.
		for _, readingID := range result.ReadingIDs {
			if err := store.RemoveReadingObjects(ctx, readingID); err != nil {
				log.Printf("Failed to remove photos for reading %s: %v", readingID, err)
			}
		}

		fmt.Println("Purge complete.")
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().Int64Var(&purgeUserID, "user", 0, "numeric ID of the user to purge")
}
