package cmd

import (
	"fmt"
	"os"
	"strings"

	"invoice-audit-service/cmd/invoiceaudit/config"
	"invoice-audit-service/internal/mapper"
	"invoice-audit-service/internal/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the learn command
var (
	learnLabel    string
	learnField    string
	learnMappings string
)

// learnCmd represents the learn command
var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Record a confirmed label-to-field mapping",
	Long: `Learn records a confirmed correction: the given raw OCR label will
resolve to the given canonical field on every future audit run using the
same mapping store, taking precedence over dictionary and fuzzy matching.

Canonical field names: ` + strings.Join(fieldNames(), ", ") + `

Examples:
  invoiceaudit learn --label "發祟號碼" --field invoiceNo --mappings mappings.json
  invoiceaudit learn --label "賣方統編" --field taxId --mappings mappings.json`,

	PreRunE: validateLearnFlags,
	RunE:    runLearn,
}

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().StringVarP(&learnLabel, "label", "l", "", "raw OCR label to map (required)")
	learnCmd.Flags().StringVar(&learnField, "field", "", "canonical field name (required)")
	learnCmd.Flags().StringVarP(&learnMappings, "mappings", "m", "", "path to learned-mapping store (required)")

	learnCmd.MarkFlagRequired("label")
	learnCmd.MarkFlagRequired("field")
	learnCmd.MarkFlagRequired("mappings")
}

func fieldNames() []string {
	fields := models.AllFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

func validateLearnFlags(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(learnLabel) == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if _, err := models.ParseCanonicalField(learnField); err != nil {
		return fmt.Errorf("invalid field %q. Valid fields: %s", learnField, strings.Join(fieldNames(), ", "))
	}
	if learnMappings == "" {
		return fmt.Errorf("mappings file is required")
	}
	return nil
}

func runLearn(cmd *cobra.Command, args []string) error {
	field, err := models.ParseCanonicalField(learnField)
	if err != nil {
		return err
	}

	store, err := config.OpenLearnedStore(learnMappings)
	if err != nil {
		return err
	}

	engine, err := mapper.NewEngine(nil, store)
	if err != nil {
		return err
	}

	if err := engine.Learn(learnLabel, field); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Store now holds %d learned mapping(s)\n", store.Len())
	}
	fmt.Printf("Learned: %q -> %s\n", learnLabel, field)

	return nil
}
