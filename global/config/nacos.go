package config

import (
	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"
)

// NacosWatcher 远程配置：首次拉取 + 监听变更
type NacosWatcher struct {
	cfg    NacosConfig
	client config_client.IConfigClient
}

// nacosParam 配置中心与服务发现共用的客户端参数
func nacosParam(nc NacosConfig) (vo.NacosClientParam, error) {
	if nc.Addr == "" {
		return vo.NacosClientParam{}, errs.New("nacos addr missing")
	}
	port := nc.Port
	if port == 0 {
		port = 8848
	}
	opts := []constant.ClientOption{
		constant.WithNamespaceId(nc.NamespaceId),
		constant.WithTimeoutMs(5000),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogLevel("warn"),
	}
	if nc.LogDir != "" {
		opts = append(opts, constant.WithLogDir(nc.LogDir))
	}
	if nc.CacheDir != "" {
		opts = append(opts, constant.WithCacheDir(nc.CacheDir))
	}
	if nc.Username != "" {
		opts = append(opts, constant.WithUsername(nc.Username), constant.WithPassword(nc.Password))
	}
	return vo.NacosClientParam{
		ClientConfig:  constant.NewClientConfig(opts...),
		ServerConfigs: []constant.ServerConfig{*constant.NewServerConfig(nc.Addr, port)},
	}, nil
}

func NewNacosWatcher(nc NacosConfig) (*NacosWatcher, error) {
	param, err := nacosParam(nc)
	if err != nil {
		return nil, err
	}
	client, err := clients.NewConfigClient(param)
	if err != nil {
		return nil, errs.WrapMsg(err, "create nacos config client")
	}
	return &NacosWatcher{cfg: nc, client: client}, nil
}

// Start 拉取一次并叠加到 base，之后每次变更都重新叠加并 Store；onChange 可为 nil
func (w *NacosWatcher) Start(base AppConfig, onChange func(AppConfig)) (AppConfig, error) {
	content, err := w.client.GetConfig(vo.ConfigParam{
		DataId: w.cfg.DataId,
		Group:  w.cfg.Group,
	})
	if err != nil {
		return base, errs.WrapMsg(err, "get nacos config", "dataId", w.cfg.DataId)
	}
	merged := base
	if content != "" {
		if merged, err = ApplyYAML(base, []byte(content)); err != nil {
			return base, err
		}
	}
	Store(merged)

	// 开始监听
	err = w.client.ListenConfig(vo.ConfigParam{
		DataId: w.cfg.DataId,
		Group:  w.cfg.Group,
		OnChange: func(namespace, group, dataId, data string) {
			next, err := ApplyYAML(base, []byte(data))
			if err != nil {
				logger.Warn("[Nacos] bad config, keep current", zap.String("dataId", dataId), zap.Error(err))
				return
			}
			Store(next)
			logger.Info("[Nacos] config reloaded", zap.String("dataId", dataId), zap.String("group", group))
			if onChange != nil {
				onChange(next)
			}
		},
	})
	if err != nil {
		return merged, errs.WrapMsg(err, "listen nacos config", "dataId", w.cfg.DataId)
	}
	return merged, nil
}

func (w *NacosWatcher) Close() {
	_ = w.client.CancelListenConfig(vo.ConfigParam{DataId: w.cfg.DataId, Group: w.cfg.Group})
	w.client.CloseClient()
}
