package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"spellgate/common/config"
	"spellgate/common/log"
)

/*
	服务发现客户端，启动时从 etcd 找到游戏引擎的地址。
	网关只在启动时解析一次，运行期间不跟随 etcd 变化
*/

type Seeker struct {
	etcdCli *clientv3.Client
}

func NewSeeker(conf config.EtcdConf) (*Seeker, error) {
	etcdCli, err := clientv3.New(clientv3.Config{
		Endpoints:   conf.Addrs,
		DialTimeout: time.Duration(conf.DialTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 etcd 客户端失败: %w", err)
	}
	return &Seeker{etcdCli: etcdCli}, nil
}

// GetServers 获取 key 本身以及 key/ 前缀下登记的所有实例
func (seeker *Seeker) GetServers(ctx context.Context, key string) ([]Server, error) {
	key = strings.TrimSuffix(key, "/")
	res, err := seeker.etcdCli.Get(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("从 etcd 获取服务列表失败: %w", err)
	}

	servers := make([]Server, 0, len(res.Kvs))
	for _, kv := range res.Kvs {
		k := string(kv.Key)
		// key = "engine" 时不应该匹配到 "engine2/..."
		if k != key && !strings.HasPrefix(k, key+"/") {
			continue
		}
		server, err := ParseValue(kv.Value)
		if err != nil {
			log.Error("解析服务信息失败, key=%s, err=%v", k, err)
			continue
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func (seeker *Seeker) Close() error {
	return seeker.etcdCli.Close()
}

// ResolveEngineURL 连接 etcd，按 key 找到引擎并返回它的 base URL
func ResolveEngineURL(ctx context.Context, conf config.EtcdConf, key string) (string, error) {
	seeker, err := NewSeeker(conf)
	if err != nil {
		return "", err
	}
	defer seeker.Close()

	servers, err := seeker.GetServers(ctx, key)
	if err != nil {
		return "", err
	}
	server, ok := Pick(servers)
	if !ok {
		return "", fmt.Errorf("etcd 中没有登记游戏引擎, key=%s", key)
	}
	log.Info("从 etcd 发现游戏引擎 %s (共 %d 个实例)", server.URL(), len(servers))
	return server.URL(), nil
}
