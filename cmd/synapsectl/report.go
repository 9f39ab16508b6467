package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/synapse-sync/core/internal/app"
	"github.com/synapse-sync/core/internal/config"
	"github.com/synapse-sync/core/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Weekly report operations",
}

var (
	reportUser       string
	reportWeek       string
	reportRegenerate bool
)

var reportGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate (or fetch) a user's weekly report out of band",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(reportUser)
		if err != nil {
			return fmt.Errorf("--user must be a valid uuid: %w", err)
		}

		cfg := config.Load()
		st, err := app.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Pool.Close()

		var redisClient *redis.Client
		if cfg.RedisURL != "" {
			opts, err := redis.ParseURL(cfg.RedisURL)
			if err == nil {
				redisClient = redis.NewClient(opts)
				defer redisClient.Close()
			}
		}

		engine := report.New(st, report.NewCache(redisClient))
		result, err := engine.Generate(cmd.Context(), userID, reportWeek, reportRegenerate)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	reportGenerateCmd.Flags().StringVar(&reportUser, "user", "", "user id (uuid)")
	reportGenerateCmd.Flags().StringVar(&reportWeek, "week", "", "ISO week key, YYYY-WNN")
	reportGenerateCmd.Flags().BoolVar(&reportRegenerate, "regenerate", false, "force recomputation even if a cached report exists")
	reportGenerateCmd.MarkFlagRequired("user")
	reportGenerateCmd.MarkFlagRequired("week")

	reportCmd.AddCommand(reportGenerateCmd)
	rootCmd.AddCommand(reportCmd)
}
