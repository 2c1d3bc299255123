package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"chat_gateway/internal/dto/request"
	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Event 除 message:new 以外、交给调用方展示的服务端事件
type Event struct {
	Name string
	Data json.RawMessage
}

// Client 一条网关连接加一个打开的会话
// 会话状态由 mu 保护，读循环和发送方可以并发调用
type Client struct {
	conn    *websocket.Conn
	baseURL *url.URL
	token   string

	mu   sync.Mutex
	conv *Conversation

	writeMu sync.Mutex
	events  chan Event
}

// Dial 连接网关并打开与 peer 的会话
// baseURL 形如 http://host:port，Token 通过 Authorization 头携带
func Dial(ctx context.Context, baseURL, token, self, peer string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	wsURL := *base
	wsURL.Scheme = "ws"
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}
	wsURL.Path = "/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial gateway: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	_ = resp.Body.Close()

	return &Client{
		conn:    conn,
		baseURL: base,
		token:   token,
		conv:    NewConversation(self, peer),
		events:  make(chan Event, constants.CHANNEL_SIZE),
	}, nil
}

// Events 非消息类事件（在线状态、正在输入、已读回执、错误），Run 退出后关闭
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send 先插入乐观消息，再发出 message:send
func (c *Client) Send(text string, image *string) (MessageView, error) {
	c.mu.Lock()
	view := c.conv.AddOptimistic(text, image)
	peer := c.conv.Peer()
	c.mu.Unlock()

	err := c.emit(constants.EVENT_MESSAGE_SEND, request.SendMessageRequest{
		To:           peer,
		Content:      view.Text,
		Image:        image,
		ClientTempId: view.Token,
	})
	return view, err
}

// Typing 发送 typing:start 或 typing:stop
func (c *Client) Typing(start bool) error {
	event := constants.EVENT_TYPING_STOP
	if start {
		event = constants.EVENT_TYPING_START
	}
	return c.emit(event, request.TypingRequest{To: c.conv.Peer()})
}

// MarkRead 发送 message:read
func (c *Client) MarkRead(messageId string) error {
	return c.emit(constants.EVENT_MESSAGE_READ, request.ReadMessageRequest{MessageId: messageId})
}

func (c *Client) emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(request.SocketFrame{Event: event, Data: raw})
}

// Run 读循环，直到连接断开或 ctx 取消
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		var frame request.SocketFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame request.SocketFrame) {
	switch frame.Event {
	case constants.EVENT_MESSAGE_NEW:
		var msg respond.MessageRespond
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			zap.L().Warn("malformed message:new", zap.Error(err))
			return
		}
		c.mu.Lock()
		result := c.conv.Reconcile(msg)
		c.mu.Unlock()
		if result == Discarded {
			return
		}
	case constants.EVENT_MESSAGE_READ:
		var receipt respond.ReadReceiptRespond
		if err := json.Unmarshal(frame.Data, &receipt); err == nil {
			c.mu.Lock()
			c.conv.ApplyReadReceipt(receipt.MessageId, receipt.UserId)
			c.mu.Unlock()
		}
	}

	select {
	case c.events <- Event{Name: frame.Event, Data: frame.Data}:
	default:
		zap.L().Warn("client event buffer full, dropping event", zap.String("event", frame.Event))
	}
}

// LoadHistory 通过 GET /messages/:roomId 拉取一页历史并重建会话
func (c *Client) LoadHistory(ctx context.Context, page, limit int) (*respond.MessagePageRespond, error) {
	c.mu.Lock()
	room := c.conv.Room()
	c.mu.Unlock()

	u := *c.baseURL
	u.Path = "/messages/" + room
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Code int                         `json:"code"`
		Msg  any                         `json:"msg"`
		Data *respond.MessagePageRespond `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Data == nil {
		return nil, fmt.Errorf("load history: status %d: %v", resp.StatusCode, body.Msg)
	}

	c.mu.Lock()
	c.conv.Load(body.Data.Messages)
	c.mu.Unlock()
	return body.Data, nil
}

// Messages 当前会话消息列表
func (c *Client) Messages() []MessageView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Messages()
}

// Pending 尚未确认的消息
func (c *Client) Pending() []MessageView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Pending()
}

// Close 发送关闭帧并断开连接
func (c *Client) Close() error {
	c.writeMu.Lock()
	werr := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	cerr := c.conn.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return werr
	}
	return cerr
}
