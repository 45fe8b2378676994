package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ds160fill/autofill"
	"github.com/hazyhaar/ds160fill/dom/htmldoc"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/store"
)

// loadPage parses a saved page. pageURL stands in for the address the
// page was saved from; section detection falls back on it.
func loadPage(path, pageURL string) (*htmldoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()
	if pageURL == "" {
		pageURL = "file://" + path
	}
	return htmldoc.Parse(f, pageURL)
}

func loadRecord(path string) (record.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return record.Parse(raw)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordFlags selects a record by file or by stored id.
type recordFlags struct {
	file string
	id   string
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "record", "", "client record JSON file")
	cmd.Flags().StringVar(&f.id, "record-id", "", "stored client record id")
}

func (f *recordFlags) request() (autofill.FillRequest, error) {
	if f.file == "" {
		return autofill.FillRequest{RecordID: f.id}, nil
	}
	rec, err := loadRecord(f.file)
	if err != nil {
		return autofill.FillRequest{}, err
	}
	return autofill.FillRequest{ClientData: rec, RecordID: f.id}, nil
}

// optionalStore opens the store when a stored record is referenced or
// runs should be kept.
func (a *app) optionalStore(need bool) (*store.Store, func(), error) {
	if !need {
		return nil, func() {}, nil
	}
	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func (a *app) fillCmd() *cobra.Command {
	var (
		rf       recordFlags
		htmlPath string
		pageURL  string
		out      string
		keepRun  bool
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a saved page offline and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			page, err := loadPage(htmlPath, pageURL)
			if err != nil {
				return err
			}
			req, err := rf.request()
			if err != nil {
				return err
			}
			st, done, err := a.optionalStore(keepRun || (rf.file == "" && rf.id != ""))
			if err != nil {
				return err
			}
			defer done()

			reply, err := a.engine(autofill.StaticPage{Page: page}, st).Fill(ctx, req)
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(page.HTML()), 0o644); err != nil {
					return fmt.Errorf("write page: %w", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), reply)
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved DS-160 page")
	cmd.Flags().StringVar(&pageURL, "url", "", "address the page was saved from")
	cmd.Flags().StringVar(&out, "out", "", "write the filled page here")
	cmd.Flags().BoolVar(&keepRun, "keep-run", false, "record the run in the store")
	cmd.MarkFlagRequired("html")
	return cmd
}

func (a *app) planCmd() *cobra.Command {
	var (
		rf       recordFlags
		sec      string
		htmlPath string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the instructions a fill would run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sec == "" && htmlPath == "" {
				return fmt.Errorf("plan: need --section or --html")
			}
			req, err := rf.request()
			if err != nil {
				return err
			}
			st, done, err := a.optionalStore(rf.file == "" && rf.id != "")
			if err != nil {
				return err
			}
			defer done()

			var pages autofill.StaticPage
			if htmlPath != "" {
				page, err := loadPage(htmlPath, "")
				if err != nil {
					return err
				}
				pages.Page = page
			}
			plan, err := a.engine(pages, st).Plan(cmd.Context(), autofill.PlanRequest{Section: sec, FillRequest: req})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), plan)
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&sec, "section", "", "section name, e.g. personalInfo1")
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved page to detect the section from")
	return cmd
}

func (a *app) detectCmd() *cobra.Command {
	var htmlPath, pageURL string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report the section of a saved page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := loadPage(htmlPath, pageURL)
			if err != nil {
				return err
			}
			d, err := a.engine(autofill.StaticPage{Page: page}, nil).DetectPage(cmd.Context(), page)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "saved DS-160 page")
	cmd.Flags().StringVar(&pageURL, "url", "", "address the page was saved from")
	cmd.MarkFlagRequired("html")
	return cmd
}
