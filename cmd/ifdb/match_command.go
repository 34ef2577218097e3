package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/IFDB/internal/app/match"
	"github.com/John-Robertt/IFDB/internal/domain"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		workers int
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "match <dir>",
		Short: "扫描媒体目录，按文件名逐组搜索并输出匹配报告",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, _, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
				return fmt.Errorf("%s 不是目录", args[0])
			}
			ag, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}

			opts := match.Options{
				Root:        root,
				ExcludeDirs: append(append([]string(nil), eff.ExcludeDirs...), exclude...),
				Workers:     eff.Concurrency,
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			var ui *progressUI
			if isTTY(stderr(cmd)) {
				ui = newProgressUI(stderr(cmd))
				opts.Observer = ui
			}

			rr := match.Execute(commandContextOf(cmd), ag, opts)
			if ui != nil {
				ui.Close()
			}
			if err := emitReport(cmd, rr); err != nil {
				return err
			}
			if rr.Summary.Failed > 0 {
				return fmt.Errorf("%d 组匹配失败", rr.Summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "并发数（默认读取配置 concurrency）")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "额外排除的子目录（相对 <dir>）")
	return cmd
}

func emitReport(cmd *cobra.Command, rr domain.MatchReport) error {
	w := cmd.OutOrStdout()
	summary := fmt.Sprintf("完成：matched=%d no_results=%d failed=%d unmatched=%d",
		rr.Summary.Matched, rr.Summary.NoResults, rr.Summary.Failed, rr.Summary.Unmatched)
	if !isTTY(w) {
		if err := writeJSON(w, rr); err != nil {
			return err
		}
		fmt.Fprintln(stderr(cmd), summary)
		return nil
	}

	rows := make([][]string, 0, len(rr.Items))
	for _, it := range rr.Items {
		id, score, name := "", "", it.ErrorMsg
		if it.Best != nil {
			id, score, name = it.Best.ID, strconv.Itoa(it.Best.Score), it.Best.Name
		}
		query := it.Query.Name
		if it.Query.Year > 0 {
			query += " (" + strconv.Itoa(it.Query.Year) + ")"
		}
		if query == "" && len(it.Files) > 0 {
			query = it.Files[0]
		}
		rows = append(rows, []string{query, it.Status, id, score, name})
	}
	fmt.Fprintln(w, renderTable([]string{"Query", "Status", "ID", "Score", "Best"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	fmt.Fprintln(w, summary)
	return nil
}
