package lens

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"LensPeer/internal/contact"
	xerrors "LensPeer/internal/errors"
)

const (
	defaultBaseURL  = "https://api-v2.lens.dev"
	defaultPageSize = 10
	defaultTimeout  = 15 * time.Second
)

// exploreProfilesQuery 从社区动态页提取最近活跃的档案。
const exploreProfilesQuery = `
query ExplorePublications($request: ExplorePublicationRequest!) {
  explorePublications(request: $request) {
    items {
      ... on Post {
        id
        by {
          handle {
            fullHandle
          }
          name
          stats {
            totalFollowers
            totalFollowing
          }
          interests
        }
      }
    }
  }
}
`

// Config 描述 Lens 客户端所需的信息。
type Config struct {
	BaseURL   string
	AuthToken string
	PageSize  int
	Timeout   time.Duration
}

// Client 通过 HTTP 调用 Lens 的 GraphQL 接口。
type Client struct {
	baseURL    string
	authToken  string
	pageSize   int
	httpClient *http.Client
}

// NewClient 根据配置创建 Lens 客户端。
func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		return nil, errors.New("未提供 Lens 鉴权令牌")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:   baseURL,
		authToken: token,
		pageSize:  pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchCandidates 执行一次 explorePublications 查询，返回本页候选档案。
// 不产生副作用，也不在内部重试。
func (c *Client) FetchCandidates(ctx context.Context) ([]contact.Candidate, error) {
	payload := map[string]any{
		"query": exploreProfilesQuery,
		"variables": map[string]any{
			"request": map[string]any{
				"sortCriteria": "LATEST",
				"limit":        c.pageSize,
			},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化档案查询失败")
	}

	endpoint := c.baseURL + "/graphql"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, xerrors.Wrap(CodeSourceUnavailable, err, "构建档案查询请求失败")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, xerrors.Wrap(CodeSourceUnavailable, err, "请求 Lens API 失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(CodeSourceUnavailable,
			fmt.Sprintf("Lens API 返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded struct {
		Data struct {
			ExplorePublications struct {
				Items []struct {
					ID string `json:"id"`
					By struct {
						Handle struct {
							FullHandle string `json:"fullHandle"`
						} `json:"handle"`
						Name  string `json:"name"`
						Stats struct {
							TotalFollowers int `json:"totalFollowers"`
							TotalFollowing int `json:"totalFollowing"`
						} `json:"stats"`
						Interests []string `json:"interests"`
					} `json:"by"`
				} `json:"items"`
			} `json:"explorePublications"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, xerrors.Wrap(CodeSourceMalformed, err, "解析档案查询响应失败")
	}
	if len(decoded.Errors) > 0 && len(decoded.Data.ExplorePublications.Items) == 0 {
		return nil, xerrors.New(CodeSourceMalformed,
			fmt.Sprintf("Lens API 返回 GraphQL 错误: %s", decoded.Errors[0].Message))
	}

	candidates := make([]contact.Candidate, 0, len(decoded.Data.ExplorePublications.Items))
	for _, item := range decoded.Data.ExplorePublications.Items {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		candidates = append(candidates, contact.Candidate{
			ProfileID:     item.ID,
			Handle:        item.By.Handle.FullHandle,
			DisplayName:   item.By.Name,
			Followers:     item.By.Stats.TotalFollowers,
			Following:     item.By.Stats.TotalFollowing,
			InterestCount: len(item.By.Interests),
			DeliveryContext: contact.DeliveryContext{
				AuthToken:       c.authToken,
				ProfileEndpoint: fmt.Sprintf("%s/profile/%s", c.baseURL, item.ID),
				MessageEndpoint: c.baseURL + "/messages/send",
			},
		})
	}
	return candidates, nil
}

// SendMessage 向单个档案发送一条消息，恰好一次出站调用。
// 错误按可重试性分类，投递是否入账由调用方决定。
func (c *Client) SendMessage(ctx context.Context, profileID, message string, deliveryCtx contact.DeliveryContext) error {
	if strings.TrimSpace(profileID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "profile_id 不能为空")
	}

	endpoint := strings.TrimSpace(deliveryCtx.MessageEndpoint)
	if endpoint == "" {
		endpoint = c.baseURL + "/messages/send"
	}
	token := strings.TrimSpace(deliveryCtx.AuthToken)
	if token == "" {
		token = c.authToken
	}

	payload, err := json.Marshal(map[string]string{
		"profile_id": profileID,
		"message":    message,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化消息失败")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return xerrors.Wrap(CodeDeliveryRejected, err, "构建消息请求失败")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return xerrors.Wrap(CodeDeliveryTransient, err, "发送消息请求失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := fmt.Sprintf("Lens API 返回状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return xerrors.New(CodeDeliveryUnauthorized, detail)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return xerrors.New(CodeDeliveryTransient, detail)
	default:
		return xerrors.New(CodeDeliveryRejected, detail)
	}
}
