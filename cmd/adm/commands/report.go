package commands

import (
	"fmt"
	"strconv"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	contextutils "siteworks/internal/utils"

	"github.com/spf13/cobra"
)

// ReportCommands returns the report export commands
func ReportCommands(documents services.DocumentServiceInterface, exports services.ExportServiceInterface, logger *observability.Logger) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Report export commands",
		Long: `Report export commands.

Available commands:
  export-pdf      - Render a report to PDF
  export-register - Write a project's report register as a spreadsheet`,
	}

	reportCmd.AddCommand(exportPDFCmd(documents, logger))
	reportCmd.AddCommand(exportRegisterCmd(exports, logger))

	return reportCmd
}

func parseIDArg(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid %s id %q", what, arg)
	}
	return id, nil
}

func exportPDFCmd(documents services.DocumentServiceInterface, logger *observability.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export-pdf <report-id>",
		Short: "Render a report to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseIDArg(args[0], "report")
			if err != nil {
				return err
			}
			doc, err := documents.RenderReport(ctx, cliActor, id)
			if err != nil {
				logger.Error(ctx, "Failed to render report", err, map[string]interface{}{"report_id": id})
				return contextutils.WrapErrorf(err, "failed to render report %d", id)
			}
			return saveDocument(cmd, outDir, doc)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func exportRegisterCmd(exports services.ExportServiceInterface, logger *observability.Logger) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export-register <project-id>",
		Short: "Write a project's report register as a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseIDArg(args[0], "project")
			if err != nil {
				return err
			}
			doc, err := exports.ExportRegister(ctx, cliActor, id)
			if err != nil {
				logger.Error(ctx, "Failed to export register", err, map[string]interface{}{"project_id": id})
				return contextutils.WrapErrorf(err, "failed to export register for project %d", id)
			}
			return saveDocument(cmd, outDir, doc)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func saveDocument(cmd *cobra.Command, outDir string, doc *models.ReportDocument) error {
	path, err := writeDocument(outDir, doc)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(doc.Data))
	return nil
}
