package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/IFDB/internal/app/agent"
	"github.com/John-Robertt/IFDB/internal/config"
	"github.com/John-Robertt/IFDB/internal/infra/cache"
	"github.com/John-Robertt/IFDB/internal/infra/httpx"
	"github.com/John-Robertt/IFDB/internal/logging"
	"github.com/John-Robertt/IFDB/internal/provider/ifdb"
	"github.com/John-Robertt/IFDB/internal/store"
)

type globalFlags struct {
	config  string
	debug   bool
	baseURL string
	noCache bool
}

// commandContext 延迟加载配置与依赖：只有真正执行子命令时才读取配置文件。
type commandContext struct {
	flags globalFlags

	once sync.Once
	eff  config.EffectiveConfig
	log  *slog.Logger
	err  error
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "ifdb",
		Short:         "在 Internet Fanedit Database 中查找 fan edit 并生成元数据",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.flags.config, "config", "c", "", "配置文件路径（默认依次查找 ./ifdb.toml、./ifdb.json）")
	pf.BoolVar(&ctx.flags.debug, "debug", false, "输出 debug 日志（覆盖配置中的 debug）")
	pf.StringVar(&ctx.flags.baseURL, "base-url", "", "IFDB 站点地址（镜像或测试服务器）")
	pf.BoolVar(&ctx.flags.noCache, "no-cache", false, "不使用磁盘页面缓存")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newUpdateCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newMatchCommand(ctx))
	return rootCmd
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.EffectiveConfig, *slog.Logger, error) {
	c.once.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			c.err = fmt.Errorf("读取当前目录失败：%w", err)
			return
		}
		pf := cmd.Flags()
		eff, err := config.LoadEffective(cwd, config.CLIArgs{
			ConfigPath: c.flags.config,
			Debug:      c.flags.debug,
			DebugSet:   pf.Changed("debug"),
			BaseURL:    c.flags.baseURL,
			BaseURLSet: pf.Changed("base-url"),
			NoCache:    c.flags.noCache,
		})
		if err != nil {
			c.err = err
			return
		}
		log, err := logging.New(logging.Options{
			Format: eff.LogFormat,
			Debug:  eff.Prefs.Debug,
			Writer: cmd.ErrOrStderr(),
		})
		if err != nil {
			c.err = err
			return
		}
		if eff.Source != "" {
			log.Debug("config loaded", "path", eff.Source)
		}
		c.eff, c.log = eff, log
	})
	return c.eff, c.log, c.err
}

// newAgent 按生效配置组装 fetcher + provider + agent。
func (c *commandContext) newAgent(cmd *cobra.Command) (*agent.Agent, error) {
	eff, log, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}

	pageClient, err := httpx.NewPageClient(eff.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("proxy.url 无效：%w", err)
	}
	imageClient, err := httpx.NewImageClient(eff.ProxyURL, eff.ImageProxy)
	if err != nil {
		return nil, err
	}

	var disk *cache.Store
	if eff.CacheDir != "" {
		s := cache.New(eff.CacheDir, false, eff.CacheTTL)
		disk = &s
	}
	fetcher, err := httpx.NewFetcher(httpx.FetcherOptions{
		PageClient:  pageClient,
		ImageClient: imageClient,
		Delay:       eff.RequestDelay,
		CacheTTL:    eff.CacheTTL,
		Disk:        disk,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	prefs := eff.Prefs
	return agent.New(agent.Options{
		Catalog: ifdb.Provider{BaseURL: eff.BaseURL},
		Pages:   fetcher,
		Images:  fetcher,
		Scores:  eff.Scores,
		Prefs:   func() config.Prefs { return prefs },
		Logger:  log,
	})
}

// withStore 打开记录库并在 fn 返回后关闭。
func (c *commandContext) withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	eff, _, err := c.ensureConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(commandContextOf(cmd), eff.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func commandContextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func stderr(cmd *cobra.Command) io.Writer { return cmd.ErrOrStderr() }
