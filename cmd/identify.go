package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/facematch"
	"github.com/kozaktomas/faceid/internal/faceid"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image>",
	Short: "Identify the faces in an image",
	Long: `Rank enrolled identities against the largest face in an image, or
against every face with --multi.

Examples:
  # Top 3 candidates for the largest face
  faceid identify photo.jpg

  # Best embedding per identity, only matches above 0.7
  faceid identify photo.jpg --grouped --threshold 0.7 --filter-matches

  # Every face, one identity per face at most
  faceid identify group.jpg --multi --exclusive --min-prob 0.9

  # Store the query embedding when the match is confident
  faceid identify photo.jpg --auto-enroll --auto-enroll-min-similarity 0.9`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Int("top-k", 0, "Number of candidates per face (default from FACE_TOP_K)")
	identifyCmd.Flags().Float64("threshold", 0, "Similarity required for a match (default from FACE_MATCH_THRESHOLD)")
	identifyCmd.Flags().Bool("grouped", false, "Rank identities by their best embedding")
	identifyCmd.Flags().Bool("filter-matches", false, "Drop candidates below the threshold")
	identifyCmd.Flags().Bool("auto-enroll", false, "Store the query embedding under a confident primary identity")
	identifyCmd.Flags().Float64("auto-enroll-min-similarity", 0, "Similarity required to auto-enroll (default from FACE_AUTO_ENROLL_MIN_SIMILARITY)")
	identifyCmd.Flags().Bool("multi", false, "Identify every detected face")
	identifyCmd.Flags().Bool("exclusive", false, "With --multi, assign each identity to at most one face")
	identifyCmd.Flags().Float64("min-prob", 0, "With --multi, ignore faces below this detection probability")
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// identifyOptionsFromFlags overlays explicitly set flags on the service defaults.
func identifyOptionsFromFlags(cmd *cobra.Command, service *faceid.Service) faceid.IdentifyOptions {
	opts := service.IdentifyOptions()
	if cmd.Flags().Changed("top-k") {
		opts.TopK = mustGetInt(cmd, "top-k")
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if mustGetBool(cmd, "grouped") {
		opts.Mode = facematch.ModeGrouped
	}
	opts.FilterMatches = mustGetBool(cmd, "filter-matches")
	opts.AutoEnroll = mustGetBool(cmd, "auto-enroll")
	if cmd.Flags().Changed("auto-enroll-min-similarity") {
		opts.AutoEnrollMinSimilarity = mustGetFloat64(cmd, "auto-enroll-min-similarity")
	}
	return opts
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	opts := identifyOptionsFromFlags(cmd, service)

	if mustGetBool(cmd, "multi") {
		multiOpts := service.MultiIdentifyOptions()
		multiOpts.IdentifyOptions = opts
		multiOpts.ExclusiveAssignment = mustGetBool(cmd, "exclusive")
		if cmd.Flags().Changed("min-prob") {
			multiOpts.MinProbability = mustGetFloat64(cmd, "min-prob")
		}

		result, err := service.IdentifyMulti(ctx, image, multiOpts)
		if err != nil {
			return fmt.Errorf("identify failed: %w", err)
		}
		if jsonOutput {
			return outputJSON(result)
		}
		printMultiResult(result)
		return nil
	}

	result, err := service.Identify(ctx, image, opts)
	if err != nil {
		return fmt.Errorf("identify failed: %w", err)
	}
	if jsonOutput {
		return outputJSON(result)
	}
	if !result.OK {
		fmt.Printf("No result: %s\n", result.Reason)
		return nil
	}
	printCandidates(result.Results)
	if result.AutoEnrolledIdentity != nil {
		fmt.Printf("Auto-enrolled query embedding under %s\n", *result.AutoEnrolledIdentity)
	}
	return nil
}

func printCandidates(candidates []facematch.Candidate) {
	if len(candidates) == 0 {
		fmt.Println("No candidates")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tSIMILARITY\tMATCH")
	fmt.Fprintln(w, "----\t----------\t-----")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%.4f\t%t\n", c.Identity, facematch.Round(c.Similarity), c.IsMatch)
	}
	w.Flush()
}

func printMultiResult(result *faceid.MultiIdentifyResult) {
	if !result.OK {
		fmt.Printf("No result: %s\n", result.Reason)
		return
	}
	for i := range result.Faces {
		f := &result.Faces[i]
		fmt.Printf("\nFace %d box=%v", i+1, f.Box)
		if f.Probability != nil {
			fmt.Printf(" prob=%.4f", *f.Probability)
		}
		fmt.Println()
		if f.PrimaryIdentity != nil {
			fmt.Printf("Primary: %s (%.4f)\n", *f.PrimaryIdentity, float64(*f.PrimarySimilarity))
		} else {
			fmt.Println("Primary: none")
		}
		if f.AutoEnrolledIdentity != nil {
			fmt.Printf("Auto-enrolled under %s\n", *f.AutoEnrolledIdentity)
		}
		printCandidates(f.Results)
	}
}
