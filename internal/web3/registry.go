package web3

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Registry 按名称或 CAIP-2 标识管理一组链端点，并对外提供连通性探测。
// 客户端按需惰性建连，成功后缓存复用。
type Registry struct {
	mu      sync.Mutex
	defs    map[string]ChainDefinition
	byCAIP2 map[string]string
	clients map[string]*ethclient.Client
}

// NewRegistry 根据链定义构建注册表。
func NewRegistry(defs ChainDefinitions) *Registry {
	normalized := make(map[string]ChainDefinition, len(defs.Chains))
	byCAIP2 := make(map[string]string, len(defs.Chains))
	for name, def := range defs.Chains {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		normalized[key] = def
		if caip2 := strings.ToLower(strings.TrimSpace(def.CAIP2)); caip2 != "" {
			byCAIP2[caip2] = key
		}
	}
	return &Registry{
		defs:    normalized,
		byCAIP2: byCAIP2,
		clients: make(map[string]*ethclient.Client),
	}
}

// Chains 返回已注册的链名称列表。
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known 判断某条链是否在注册表中，同时接受链名称和 CAIP-2 标识。
func (r *Registry) Known(chain string) bool {
	if r == nil {
		return false
	}
	_, ok := r.lookup(chain)
	return ok
}

// Probe 校验链端点可达且链 ID 与定义一致。
func (r *Registry) Probe(ctx context.Context, chain string) error {
	if r == nil {
		return fmt.Errorf("链注册表未初始化")
	}
	name, ok := r.lookup(chain)
	if !ok {
		return fmt.Errorf("链 %s 未在注册表中", chain)
	}
	def := r.defs[name]
	if strings.TrimSpace(def.RPCURL) == "" {
		// 只声明未配置端点的链视为已知但不可探测。
		return nil
	}

	client, err := r.clientFor(ctx, name, def)
	if err != nil {
		return err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		r.evict(name)
		return fmt.Errorf("获取链 %s 的链 ID 失败: %w", name, err)
	}
	if def.ChainID > 0 && chainID.Uint64() != def.ChainID {
		return fmt.Errorf("链 %s 的链 ID 不匹配: 期望 %d 实际 %s", name, def.ChainID, chainID)
	}
	if _, err := client.BlockNumber(ctx); err != nil {
		r.evict(name)
		return fmt.Errorf("获取链 %s 的区块高度失败: %w", name, err)
	}
	return nil
}

// Close 释放所有已建立的链连接。
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.clients {
		client.Close()
		delete(r.clients, name)
	}
}

func (r *Registry) lookup(chain string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(chain))
	if key == "" {
		return "", false
	}
	if _, ok := r.defs[key]; ok {
		return key, true
	}
	if name, ok := r.byCAIP2[key]; ok {
		return name, true
	}
	return "", false
}

func (r *Registry) clientFor(ctx context.Context, name string, def ChainDefinition) (*ethclient.Client, error) {
	r.mu.Lock()
	if client, ok := r.clients[name]; ok {
		r.mu.Unlock()
		return client, nil
	}
	r.mu.Unlock()

	rpcClient, err := gethrpc.DialContext(ctx, def.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("连接链 %s 的节点失败: %w", name, err)
	}
	client := ethclient.NewClient(rpcClient)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[name]; ok {
		client.Close()
		return existing, nil
	}
	r.clients[name] = client
	return client, nil
}

func (r *Registry) evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[name]; ok {
		client.Close()
		delete(r.clients, name)
	}
}
