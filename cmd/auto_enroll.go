package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/config"
)

var autoEnrollCmd = &cobra.Command{
	Use:   "auto-enroll <image>",
	Short: "Enroll an image only when it holds one confidently matched face",
	Long: `Enroll the face of an image under its best matching identity, but only
if exactly one face is detected and the match clears --min-similarity.

Examples:
  faceid auto-enroll doorbell.jpg --min-similarity 0.85 --min-prob 0.95`,
	Args: cobra.ExactArgs(1),
	RunE: runAutoEnroll,
}

func init() {
	rootCmd.AddCommand(autoEnrollCmd)

	autoEnrollCmd.Flags().Float64("min-similarity", 0, "Similarity required to enroll (default from FACE_CONFIDENT_MIN_SIMILARITY)")
	autoEnrollCmd.Flags().Float64("min-prob", 0, "Ignore faces below this detection probability")
	autoEnrollCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAutoEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	opts := service.AutoEnrollOptions()
	if cmd.Flags().Changed("min-similarity") {
		opts.MinSimilarity = mustGetFloat64(cmd, "min-similarity")
	}
	if cmd.Flags().Changed("min-prob") {
		opts.MinProbability = mustGetFloat64(cmd, "min-prob")
	}

	result, err := service.AutoEnrollIfConfident(ctx, image, opts)
	if err != nil {
		return fmt.Errorf("auto-enroll failed: %w", err)
	}
	if jsonOutput {
		return outputJSON(result)
	}

	if !result.OK {
		if result.Similarity != nil {
			fmt.Printf("Not enrolled: %s (best similarity %.4f)\n", result.Reason, float64(*result.Similarity))
		} else {
			fmt.Printf("Not enrolled: %s\n", result.Reason)
		}
		return nil
	}
	fmt.Printf("Enrolled under %s (similarity %.4f, %s tier)\n",
		*result.EnrolledIdentity, float64(*result.Similarity), result.Storage.Tier)
	return nil
}
