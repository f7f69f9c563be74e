package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "records.json")
	if err := os.WriteFile(validFile, []byte("[]"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		description string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			description: "records file",
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			description: "records file",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/records.json",
			description: "records file",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			description: "records file",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, tt.description)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAuditFlags(t *testing.T) {
	tmpDir := t.TempDir()
	recordsPath := filepath.Join(tmpDir, "records.json")

	if err := os.WriteFile(recordsPath, []byte(`[{"發票號碼": "AB12345678"}]`), 0644); err != nil {
		t.Fatalf("failed to create records file: %v", err)
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name: "valid flags",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("amount-tolerance", 1.0)
				viper.Set("min-similarity", 0.70)
			},
			expectError: false,
		},
		{
			name: "missing records file",
			setupFlags: func() {
				viper.Set("records", "")
			},
			expectError:   true,
			errorContains: "records file is required",
		},
		{
			name: "invalid output format",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "xml")
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
		{
			name: "invalid period start",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("period-start", "15/11/2024")
				viper.Set("period-end", "2024-12-31")
			},
			expectError:   true,
			errorContains: "invalid period start format",
		},
		{
			name: "period start without end",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("period-start", "2024-11-01")
			},
			expectError:   true,
			errorContains: "must be given together",
		},
		{
			name: "period start after end",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("period-start", "2024-12-31")
				viper.Set("period-end", "2024-11-01")
			},
			expectError:   true,
			errorContains: "cannot be after period end",
		},
		{
			name: "negative amount tolerance",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("amount-tolerance", -1.0)
			},
			expectError:   true,
			errorContains: "amount tolerance cannot be negative",
		},
		{
			name: "similarity out of range",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "console")
				viper.Set("min-similarity", 1.5)
			},
			expectError:   true,
			errorContains: "min similarity must be between 0.0 and 1.0",
		},
		{
			name: "output directory does not exist",
			setupFlags: func() {
				viper.Set("records", recordsPath)
				viper.Set("output-format", "csv")
				viper.Set("min-similarity", 0.70)
				viper.Set("output", "/non/existent/dir/report.csv")
			},
			expectError:   true,
			errorContains: "output directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setupFlags()

			cmd := &cobra.Command{}
			err := validateAuditFlags(cmd, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestAuditCommandHelp(t *testing.T) {
	cmd := auditCmd

	for _, flag := range []string{"records", "mappings", "expected-tax-id", "period-start", "period-end", "strict", "output-format"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("%s flag not found", flag)
		}
	}

	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	cmd.Help()

	helpText := helpOutput.String()

	expectedSections := []string{
		"Usage:",
		"Examples:",
		"Flags:",
		"--records",
		"--expected-tax-id",
		"--output-format",
	}

	for _, section := range expectedSections {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestLearnCommandFlags(t *testing.T) {
	cmd := learnCmd

	for _, flag := range []string{"label", "field", "mappings"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("%s flag not found", flag)
		}
	}
}
