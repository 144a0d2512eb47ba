// cmd/get.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testbrowser/internal/browser"
	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/config"
	"github.com/xkilldash9x/testbrowser/internal/observability"
)

const closeTimeout = 10 * time.Second

type getOptions struct {
	css    string
	xpath  string
	driver string
	xml    bool
}

func newGetCmd() *cobra.Command {
	opts := &getOptions{}
	getCmd := &cobra.Command{
		Use:   "get URL",
		Short: "Open a page and print the text of matching elements, or its title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			return runGet(cmd, cfg, opts, args[0])
		},
	}
	getCmd.Flags().StringVar(&opts.css, "css", "", "CSS selector to print")
	getCmd.Flags().StringVar(&opts.xpath, "xpath", "", "XPath expression to print")
	getCmd.Flags().StringVar(&opts.driver, "driver", "", "driver to use: http, chrome or playwright (default from config)")
	getCmd.Flags().BoolVar(&opts.xml, "xml", false, "parse the page as XML")
	getCmd.MarkFlagsMutuallyExclusive("css", "xpath")
	return getCmd
}

func runGet(cmd *cobra.Command, cfg *config.Config, opts *getOptions, target string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	switch opts.driver {
	case "":
	case config.DriverHTTP, config.DriverChrome, config.DriverPlaywright:
		cfg.Browser.Driver = opts.driver
	default:
		return fmt.Errorf("driver %q cannot be used from the command line", opts.driver)
	}
	if opts.xml {
		cfg.Browser.ParseMode = dom.ModeXML.String()
	}

	b, err := browser.New(ctx, cfg, logger, browser.WithDiagnosticsWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser.", zap.Error(err))
		}
	}()

	if err := b.Open(ctx, target); err != nil {
		return err
	}

	var results *dom.ResultSet
	switch {
	case opts.css != "":
		results, err = b.CSS(opts.css)
	case opts.xpath != "":
		results, err = b.XPath(opts.xpath)
	default:
		title, err := b.Title()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), title)
		return err
	}
	if err != nil {
		return err
	}
	if _, err := results.First(); err != nil {
		return err
	}
	for _, text := range results.TextContent() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), text); err != nil {
			return err
		}
	}
	return nil
}
