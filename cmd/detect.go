package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/config"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "List face boxes and detection probabilities",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored embedding counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(statsCmd)

	detectCmd.Flags().Bool("json", false, "Output as JSON")
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	result, err := service.Detect(ctx, image)
	if err != nil {
		return fmt.Errorf("detect failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	fmt.Printf("Detected %d face(s)\n", result.Count)
	for i, f := range result.Faces {
		fmt.Printf("  %d: box=[%.1f %.1f %.1f %.1f] prob=%.4f\n", i+1, f.Box[0], f.Box[1], f.Box[2], f.Box[3], f.Prob())
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	stats, err := service.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(stats)
	}

	fmt.Printf("Embeddings: %d\n", stats.Records)
	fmt.Printf("Identities: %d\n", stats.Identities)
	fmt.Printf("Dimensions: %v\n", stats.Dims)
	return nil
}
