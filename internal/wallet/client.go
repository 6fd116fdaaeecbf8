package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "LensPeer/internal/errors"
)

// walletsQuery 拉取钱包参考数据，参考流无需鉴权。
const walletsQuery = `
query GetWallets {
    wallets {
        id
        name
        homepage
        image_id
        mobile_link
        desktop_link
        chains
    }
}
`

// Client 通过 GraphQL 拉取钱包参考数据。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建参考数据客户端。
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchItems 执行一次 wallets 查询。
func (c *Client) FetchItems(ctx context.Context) ([]Item, error) {
	encoded, err := json.Marshal(map[string]string{"query": walletsQuery})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化钱包查询失败")
	}

	endpoint := c.baseURL + "/graphql"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, xerrors.Wrap(CodeWalletFetch, err, "构建钱包查询请求失败")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, xerrors.Wrap(CodeWalletFetch, err, "请求钱包参考接口失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(CodeWalletFetch,
			fmt.Sprintf("钱包参考接口返回状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded struct {
		Data struct {
			Wallets []Item `json:"wallets"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(CodeWalletFetch, err, "解析钱包参考响应失败")
	}
	return decoded.Data.Wallets, nil
}
