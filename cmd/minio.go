package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"stemroom/config"
	"stemroom/storage"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the asset bucket",
	Long:  `Lists objects in the MinIO bucket, or prints aggregate stats with --stats.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("failed to connect to MinIO: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if minioStats {
			stats, err := storage.GetBucketStats(ctx, cfg.MinioBucket)
			if err != nil {
				log.Fatalf("failed to get bucket stats: %v", err)
			}
			fmt.Printf("objects: %d\n", stats.TotalObjects)
			fmt.Printf("total size: %d bytes\n", stats.TotalSize)
			if !stats.LastModified.IsZero() {
				fmt.Printf("last modified: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			return
		}

		if err := storage.ListObjects(ctx, cfg.MinioBucket, minioPrefix); err != nil {
			log.Fatalf("failed to list objects: %v", err)
		}
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "object key prefix to list")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print bucket statistics")
	rootCmd.AddCommand(minioCmd)
}
