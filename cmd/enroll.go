package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user-id> <image>",
	Short: "Enroll the largest face of an image under a user",
	Long: `Detect faces in an image and store the embedding of the largest one
under the given user identity.

Examples:
  faceid enroll 42 portrait.jpg
  faceid enroll alice portrait.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

var enrollBatchCmd = &cobra.Command{
	Use:   "enroll-batch <user-id> <image>...",
	Short: "Enroll several images under one user",
	Long: `Enroll the largest face of each image under the given user identity.
Images without a detectable face are skipped.

Examples:
  faceid enroll-batch 42 photos/*.jpg`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnrollBatch,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(enrollBatchCmd)

	enrollCmd.Flags().Bool("json", false, "Output as JSON")
	enrollBatchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	identity := database.NewIdentity(args[0])
	image, err := readImage(args[1])
	if err != nil {
		return err
	}

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	result, err := service.Enroll(ctx, identity, image)
	if err != nil {
		return fmt.Errorf("enroll failed: %w", err)
	}
	if jsonOutput {
		return outputJSON(result)
	}

	if !result.OK {
		fmt.Printf("Not enrolled: %s\n", result.Reason)
		return nil
	}
	fmt.Printf("Enrolled %s (dim=%d, stored in %s tier, record %s)\n",
		identity, result.Dim, result.Storage.Tier, result.Storage.RecordID)
	if result.Storage.PrimaryError != "" {
		fmt.Printf("Warning: primary store failed: %s\n", result.Storage.PrimaryError)
	}
	return nil
}

func runEnrollBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	identity := database.NewIdentity(args[0])
	images := make([][]byte, 0, len(args)-1)
	for _, path := range args[1:] {
		data, err := readImage(path)
		if err != nil {
			return err
		}
		images = append(images, data)
	}

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	var onProgress func()
	if !jsonOutput {
		bar := progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("Embedding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		onProgress = func() { bar.Add(1) }
	}

	result, err := service.EnrollBatch(ctx, identity, images, onProgress)
	if err != nil {
		return fmt.Errorf("batch enroll failed: %w", err)
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("\nEnrolled %d image(s) for %s, skipped %d without a face\n", result.Enrolled, identity, result.Skipped)
	return nil
}
