package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"spellgate/app"
	"spellgate/common/config"
	"spellgate/common/log"
	"spellgate/common/metrics"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "spellgate",
	Short: "spellgate 游戏网关",
	Long:  `spellgate 把浏览器的游戏动作转发给远端游戏引擎，并把状态推回页面`,
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := config.Load(configFile, func(next *config.Config) {
			log.SetLevel(next.Log.Level)
			log.Info("配置文件已更新, 日志级别: %s", next.Log.Level)
		})
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		log.InitLog(conf.AppName, conf.Log.Level)
		log.Debug("配置文件: %+v", conf)

		engineMetrics := metrics.NewEngine()
		if err := engineMetrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Fatal("注册监控指标失败: %v", err)
		}
		if conf.MetricPort > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", conf.MetricPort)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", conf.MetricPort), prometheus.DefaultGatherer); err != nil {
					log.Error("监控服务退出: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background(), conf, engineMetrics); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "配置文件路径，不传时只读环境变量")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
