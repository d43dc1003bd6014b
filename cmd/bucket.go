package cmd

import (
	"context"
	"fmt"
	"log"

	"trackanalyzer/config"
	"trackanalyzer/storage"

	"github.com/spf13/cobra"
)

var (
	bucketPrefix string
	bucketPurge  bool
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Inspect the reading-photos bucket",
	Long:  `Reports object counts and total size for the photo bucket, optionally scoped to a reading prefix. With --purge, removes every object under the given reading ID.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.PhotoBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}

		store := storage.NewPhotoStore(storage.GetMinioClient(), cfg.PhotoBucket)
		ctx := context.Background()

		if bucketPurge {
			if bucketPrefix == "" {
				log.Fatal("--purge requires --prefix with a reading ID")
			}
			fmt.Printf("Removing photo objects for reading %s...\n", bucketPrefix)
			if err := store.RemoveReadingObjects(ctx, bucketPrefix); err != nil {
				log.Fatalf("Failed to remove objects: %v", err)
			}
			fmt.Println("Done.")
			return
		}

		stats, err := store.Stats(ctx, bucketPrefix)
		if err != nil {
			log.Fatalf("Failed to collect bucket stats: %v", err)
		}

		fmt.Printf("Objects: %d\n", stats.TotalObjects)
		fmt.Printf("Total size: %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("Last upload: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	rootCmd.AddCommand(bucketCmd)

	bucketCmd.Flags().StringVarP(&bucketPrefix, "prefix", "p", "", "object prefix to scope the report, or a reading ID with --purge")
	bucketCmd.Flags().BoolVar(&bucketPurge, "purge", false, "remove every photo object under the given reading ID")

	bucketCmd.Example = `  # Bucket-wide report
  trackanalyzer bucket

  # Report for one reading's photos
  trackanalyzer bucket -p "readings/4f7c.../"

  # Remove a reading's orphaned photos
  trackanalyzer bucket --purge -p 4f7c...`
}
