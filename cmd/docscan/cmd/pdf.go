package cmd

import (
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [image|pdf|directory...]",
	Short: "Scan document photos into a single PDF",
	Long: `Scan every input and combine the pages, in argument order, into one PDF.

This is shorthand for "docscan scan --pdf". Pages are fitted onto the
selected page size, or use the scanned image size with --page-size original.

Examples:
  docscan pdf page1.jpg page2.jpg -o document.pdf
  docscan pdf photos/ --page-size letter --margin 18
  docscan pdf receipts/ -o s3://my-bucket/receipts/2024-05.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args, true)
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addScanFlags(pdfCmd)
}
