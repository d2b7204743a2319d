package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Server etcd 里登记的一个引擎实例。
// 值可以是 JSON（{"name":"engine","addr":"10.0.0.5:3000","weight":10}），也可以直接是地址
type Server struct {
	Name    string `json:"name"`
	Addr    string `json:"addr"`
	Weight  int    `json:"weight"`
	Version string `json:"version"`
}

func ParseValue(v []byte) (Server, error) {
	text := strings.TrimSpace(string(v))
	if text == "" {
		return Server{}, errors.New("etcd 值为空")
	}
	if strings.HasPrefix(text, "{") {
		var s Server
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return Server{}, fmt.Errorf("解析服务信息失败: %w", err)
		}
		if s.Addr == "" {
			return Server{}, errors.New("服务信息缺少 addr")
		}
		return s, nil
	}
	return Server{Addr: text}, nil
}

// URL 引擎的 base URL，没有 scheme 时补 http://
func (s Server) URL() string {
	addr := strings.TrimRight(s.Addr, "/")
	if strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

// Pick 选权重最高的实例，同权重按地址排序保证结果稳定
func Pick(servers []Server) (Server, bool) {
	if len(servers) == 0 {
		return Server{}, false
	}
	sorted := append([]Server(nil), servers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Addr < sorted[j].Addr
	})
	return sorted[0], true
}
