package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"stemroom/config"
	"stemroom/db"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Long:  `Connects to Redis with the configured settings and runs a basic read/write probe.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		fmt.Println("connected")

		if err := db.TestRedis(); err != nil {
			log.Fatalf("Redis probe failed: %v", err)
		}
		fmt.Println("read/write probe ok")

		if err := db.CloseRedis(); err != nil {
			log.Printf("error closing Redis connection: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
