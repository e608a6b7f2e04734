package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.smbshare/internal/cli/output"
	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/dispatch"
)

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <remote-path>...",
		Short: "Show file or directory metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, items := perItem("remotePath", args)
			res, err := a.run(cmd.Context(), dispatch.OpStat, params, items)
			if err != nil {
				return err
			}
			return a.printer.Print(statView(res))
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [directory]...",
		Aliases: []string{"list"},
		Short:   "List directory contents",
		Long: `List the contents of each directory (default "/"). A directory
containing * or ? is used as the listing mask as-is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"/"}
			}
			params, items := perItem("directory", args)
			res, err := a.run(cmd.Context(), dispatch.OpList, params, items)
			if err != nil {
				return err
			}
			return a.printer.Print(listView(res))
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var (
		dest     string
		toStdout bool
		fileName string
	)
	cmd := &cobra.Command{
		Use:   "get <remote-path>...",
		Short: "Download files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileName != "" && len(args) > 1 {
				return fmt.Errorf("--name can only be used with a single file")
			}
			params, items := perItem("remotePath", args)
			params.Global["outFileName"] = fileName

			res, err := a.run(cmd.Context(), dispatch.OpGet, params, items)
			if err != nil {
				return err
			}

			view := output.NewTableData("FILE", "REMOTE PATH", "BYTES")
			for _, item := range res {
				bin := item.Binary["data"]
				if toStdout {
					if _, err := a.out.Write(bin.Data); err != nil {
						return err
					}
					continue
				}
				local := filepath.Join(dest, filepath.Base(bin.FileName))
				if err := os.WriteFile(local, bin.Data, 0644); err != nil {
					return fmt.Errorf("failed to write local file %s: %w", local, err)
				}
				item.JSON["localPath"] = local
				item.JSON["bytes"] = len(bin.Data)
				view.AddRow(local, fmt.Sprint(item.JSON["remotePath"]), strconv.Itoa(len(bin.Data)))
			}
			if toStdout {
				return nil
			}
			return a.printIt(view, res)
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", ".", "Local directory to write files into")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write file content to standard output")
	cmd.Flags().StringVar(&fileName, "name", "", "Local file name (single file only)")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var (
		remoteDir  string
		remotePath string
		text       string
	)
	cmd := &cobra.Command{
		Use:   "put <local-file>...",
		Short: "Upload files",
		Long: `Upload each local file into --remote-dir under its own name, or upload
--text as the content of --remote-path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				params dispatch.MapParameters
				items  []*dispatch.Item
			)
			if cmd.Flags().Changed("text") {
				if remotePath == "" || len(args) > 0 {
					return fmt.Errorf("--text requires --remote-path and no file arguments")
				}
				params = dispatch.MapParameters{Global: map[string]string{
					"putSource":   "text",
					"textContent": text,
					"remotePath":  remotePath,
				}}
				items = []*dispatch.Item{{JSON: map[string]any{}}}
			} else {
				if len(args) == 0 {
					return fmt.Errorf("at least one local file is required")
				}
				if remotePath != "" && len(args) > 1 {
					return fmt.Errorf("--remote-path can only be used with a single file")
				}
				params = dispatch.MapParameters{Global: map[string]string{"putSource": "binary"}}
				for _, local := range args {
					data, err := os.ReadFile(local)
					if err != nil {
						return fmt.Errorf("failed to read local file %s: %w", local, err)
					}
					target := remotePath
					if target == "" {
						target = path.Join(remoteDir, filepath.Base(local))
					}
					params.PerItem = append(params.PerItem, map[string]string{"remotePath": target})
					items = append(items, &dispatch.Item{
						JSON:   map[string]any{},
						Binary: map[string]*dispatch.BinaryData{"data": {Data: data, FileName: filepath.Base(local)}},
					})
				}
			}

			res, err := a.run(cmd.Context(), dispatch.OpPut, params, items)
			if err != nil {
				return err
			}
			return a.printIt(keyValueView(res), res)
		},
	}
	cmd.Flags().StringVar(&remoteDir, "remote-dir", "/", "Remote directory for uploaded files")
	cmd.Flags().StringVar(&remotePath, "remote-path", "", "Exact remote path (single upload)")
	cmd.Flags().StringVar(&text, "text", "", "Upload this text instead of a file")
	return cmd
}

func newStructuralCmd(a *app, use, short, param string, op dispatch.Operation, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, items := perItem(param, args)
			res, err := a.run(cmd.Context(), op, params, items)
			if err != nil {
				return err
			}
			return a.printIt(keyValueView(res), res)
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return newStructuralCmd(a, "mkdir <directory>...", "Create directories", "directory", dispatch.OpMkdir)
}

func newRmdirCmd(a *app) *cobra.Command {
	return newStructuralCmd(a, "rmdir <directory>...", "Remove empty directories", "directory", dispatch.OpRmdir)
}

func newDeleteCmd(a *app) *cobra.Command {
	return newStructuralCmd(a, "rm <remote-path>...", "Delete files", "remotePath", dispatch.OpDel, "del")
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify host, share and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			share, err := a.opener()(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = share.Close(ctx) }()

			if err := share.TestConnection(ctx); err != nil {
				return err
			}
			a.printer.Println("OK", a.cfg.Credentials().String())
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, Version)
				return
			}
			fmt.Fprintf(w, "smbshare %s\n", Version)
			fmt.Fprintf(w, "  Commit:     %s\n", Commit)
			fmt.Fprintf(w, "  Built:      %s\n", Date)
			fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Show only version number")
	return cmd
}

// printIt prints view for tables and the raw item JSON otherwise.
func (a *app) printIt(view output.TableRenderer, items []*dispatch.Item) error {
	if a.printer.Format() == output.FormatTable {
		return a.printer.Print(view)
	}
	return a.printer.Print(jsonOf(items))
}

type listResult struct {
	items []*dispatch.Item
}

func listView(items []*dispatch.Item) any {
	return listResult{items: items}
}

func (l listResult) Headers() []string {
	return []string{"DIRECTORY", "NAME", "SIZE", "DATE", "TIME", "ATTRIBUTES"}
}

func (l listResult) Rows() [][]string {
	var rows [][]string
	for _, item := range l.items {
		dir := fmt.Sprint(item.JSON["directory"])
		entries, _ := item.JSON["entries"].([]*client.DirectoryEntry)
		for _, e := range entries {
			rows = append(rows, []string{
				dir, e.Name, strconv.FormatInt(e.Size, 10), e.Date, e.Time, strings.Join(e.Attributes, ""),
			})
		}
	}
	return rows
}

func (l listResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonOf(l.items))
}

func (l listResult) MarshalYAML() (interface{}, error) {
	return jsonOf(l.items), nil
}

type statResult struct {
	items []*dispatch.Item
}

func statView(items []*dispatch.Item) any {
	return statResult{items: items}
}

func (s statResult) Headers() []string {
	return []string{"PATH", "SIZE", "ATTRIBUTES", "MODIFIED", "DIRECTORY"}
}

func (s statResult) Rows() [][]string {
	rows := make([][]string, 0, len(s.items))
	for _, item := range s.items {
		size := "-"
		if v, ok := item.JSON["size"]; ok {
			size = fmt.Sprint(v)
		}
		attrs, _ := item.JSON["attributes"].([]string)
		modified, _ := item.JSON["writeTime"].(string)
		rows = append(rows, []string{
			fmt.Sprint(item.JSON["remotePath"]),
			size,
			strings.Join(attrs, ""),
			modified,
			fmt.Sprint(item.JSON["isDirectory"]),
		})
	}
	return rows
}

func (s statResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonOf(s.items))
}

func (s statResult) MarshalYAML() (interface{}, error) {
	return jsonOf(s.items), nil
}

// keyValueView renders every item field as one row.
func keyValueView(items []*dispatch.Item) output.TableRenderer {
	view := output.NewTableData("ITEM", "FIELD", "VALUE")
	for i, item := range items {
		keys := make([]string, 0, len(item.JSON))
		for k := range item.JSON {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			view.AddRow(strconv.Itoa(i), k, fmt.Sprint(item.JSON[k]))
		}
	}
	return view
}
