package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceid",
	Short: "Face identification and enrollment engine",
	Long: `faceid enrolls face embeddings under user identities and answers
"who is this" queries against them. Embeddings are produced by an external
face detection service and stored in PostgreSQL (pgvector), with a local
JSON file as the fallback tier.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
