package config

import (
	"net"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"
)

// GatewayInstance 注册到 nacos 的网关节点
type GatewayInstance struct {
	ID   string
	IP   string
	Port uint64
	Meta map[string]string
}

// NacosRegistry 网关节点的服务注册（临时实例，进程退出即摘除）
type NacosRegistry struct {
	cfg    NacosConfig
	client naming_client.INamingClient
	self   GatewayInstance
}

func NewNacosRegistry(nc NacosConfig, self GatewayInstance) (*NacosRegistry, error) {
	param, err := nacosParam(nc)
	if err != nil {
		return nil, err
	}
	if self.IP == "" {
		self.IP = nc.AdvertiseIP
	}
	if self.IP == "" {
		self.IP = localIPv4()
	}
	client, err := clients.NewNamingClient(param)
	if err != nil {
		return nil, errs.WrapMsg(err, "create nacos naming client")
	}
	return &NacosRegistry{cfg: nc, client: client, self: self}, nil
}

func (r *NacosRegistry) registerParam() vo.RegisterInstanceParam {
	return registerParam(r.cfg, r.self)
}

func registerParam(nc NacosConfig, self GatewayInstance) vo.RegisterInstanceParam {
	meta := map[string]string{"gateway_id": self.ID, "ws_path": "/ws"}
	for k, v := range self.Meta {
		meta[k] = v
	}
	return vo.RegisterInstanceParam{
		Ip:          self.IP,
		Port:        self.Port,
		ServiceName: nc.ServiceName,
		GroupName:   nc.Group,
		ClusterName: "DEFAULT",
		Weight:      1,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		Metadata:    meta,
	}
}

func (r *NacosRegistry) Register() error {
	ok, err := r.client.RegisterInstance(r.registerParam())
	if err != nil {
		return errs.WrapMsg(err, "register gateway", "service", r.cfg.ServiceName)
	}
	if !ok {
		return errs.New("register gateway returned false", "service", r.cfg.ServiceName)
	}
	logger.Info("[Nacos] gateway registered",
		zap.String("service", r.cfg.ServiceName), zap.String("gateway", r.self.ID),
		zap.String("ip", r.self.IP), zap.Uint64("port", r.self.Port))
	return nil
}

// Close 摘除实例并关闭客户端
func (r *NacosRegistry) Close() {
	_, err := r.client.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          r.self.IP,
		Port:        r.self.Port,
		ServiceName: r.cfg.ServiceName,
		GroupName:   r.cfg.Group,
		Cluster:     "DEFAULT",
		Ephemeral:   true,
	})
	if err != nil {
		logger.Warn("[Nacos] deregister gateway", zap.String("gateway", r.self.ID), zap.Error(err))
	}
	r.client.CloseClient()
}

// localIPv4 第一个非回环 IPv4，取不到时用 127.0.0.1
func localIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "127.0.0.1"
}
