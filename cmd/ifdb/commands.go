package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/IFDB/internal/app/agent"
	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/infra/fsx"
	"github.com/John-Robertt/IFDB/internal/infra/imgx"
	"github.com/John-Robertt/IFDB/internal/nfo"
	"github.com/John-Robertt/IFDB/internal/store"
)

const nfoFile = "movie.nfo"

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		year   int
		manual bool
	)
	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "按标题搜索并按相似度列出候选",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}
			out, err := ag.Search(commandContextOf(cmd), strings.Join(args, " "), year, manual)
			if err != nil {
				return errors.New(agent.Describe(err))
			}
			return emitSearch(cmd, out)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "发布年份（<=1900 视为未提供）")
	cmd.Flags().BoolVar(&manual, "manual", false, "列出全部候选，不在高分结果处截断")
	return cmd
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "抓取详情页并合并进本地记录（可选写出 NFO 与海报）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("id 不能为空")
			}
			_, log, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			ag, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}

			return ctx.withStore(cmd, func(st *store.Store) error {
				c := commandContextOf(cmd)
				rec, ok, err := st.Get(c, id)
				if err != nil {
					return err
				}
				if !ok {
					rec = domain.FaneditMeta{ID: id}
				}
				if err := ag.Update(c, id, &rec); err != nil {
					return errors.New(agent.Describe(err))
				}
				if err := st.Put(c, rec); err != nil {
					return err
				}
				if outDir != "" {
					mode := fsx.NoOverwrite
					if force {
						mode = fsx.Replace
					}
					if err := writeSidecars(log, outDir, rec, mode); err != nil {
						return err
					}
				}
				return emitRecord(cmd, rec)
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "写出 movie.nfo 与 poster.jpg 的目录")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的 movie.nfo / poster.jpg")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "显示本地已保存的记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(st *store.Store) error {
				rec, ok, err := st.Get(commandContextOf(cmd), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("没有 id=%s 的记录；先执行 ifdb update %s", args[0], args[0])
				}
				return emitRecord(cmd, rec)
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出本地已保存的记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(st *store.Store) error {
				items, err := st.List(commandContextOf(cmd))
				if err != nil {
					return err
				}
				return emitList(cmd, items)
			})
		},
	}
}

// writeSidecars 写出 movie.nfo 与 poster.jpg。
// 已存在的文件（NoOverwrite）视为满足，只记日志。
func writeSidecars(log *slog.Logger, dir string, rec domain.FaneditMeta, mode fsx.Mode) error {
	hasPoster := false
	if data := posterData(rec); len(data) > 0 {
		jpg, err := imgx.ToJPEG(data)
		if err != nil {
			log.Warn("poster conversion failed", "error", err)
		} else {
			if err := writeSidecar(log, dir, nfo.PosterFile, jpg, mode); err != nil {
				return err
			}
			hasPoster = true
		}
	}
	if !hasPoster {
		if fi, err := os.Stat(filepath.Join(dir, nfo.PosterFile)); err == nil && fi.Mode().IsRegular() {
			hasPoster = true
		}
	}

	b, err := nfo.Encode(rec, hasPoster)
	if err != nil {
		return fmt.Errorf("生成 NFO 失败：%w", err)
	}
	return writeSidecar(log, dir, nfoFile, b, mode)
}

func writeSidecar(log *slog.Logger, dir, name string, data []byte, mode fsx.Mode) error {
	err := fsx.WriteFile(dir, name, data, mode)
	switch {
	case err == nil:
		log.Info("sidecar written", "path", filepath.Join(dir, name))
		return nil
	case errors.Is(err, os.ErrExist):
		log.Info("sidecar exists, skipped (use --force to overwrite)", "path", filepath.Join(dir, name))
		return nil
	default:
		return fmt.Errorf("写入 %s 失败：%w", name, err)
	}
}

// posterData 返回记录中带字节的海报（按 URL 排序取第一张）。
func posterData(rec domain.FaneditMeta) []byte {
	urls := make([]string, 0, len(rec.Posters))
	for u, p := range rec.Posters {
		if len(p.Data) > 0 {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil
	}
	slices.Sort(urls)
	return rec.Posters[urls[0]].Data
}

func formatRating(r float64) string { return strconv.FormatFloat(r, 'f', 1, 64) }
