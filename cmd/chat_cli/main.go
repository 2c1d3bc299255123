package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chat_gateway/internal/client"
	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/util/jwt"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:8000", "Gateway base URL")
	token := flag.String("token", "", "Access token (JWT)")
	secret := flag.String("secret", "", "Sign a local token with this secret instead of -token (dev only)")
	self := flag.String("user", "", "Your user id")
	peer := flag.String("peer", "", "User id to chat with")
	flag.Parse()

	if *self == "" || *peer == "" {
		log.Fatal("-user and -peer are required")
	}
	if *token == "" && *secret != "" {
		signed, err := jwt.NewManager(*secret, time.Hour).GenerateAccessToken(*self, "", "user")
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		*token = signed
	}
	if *token == "" {
		log.Fatal("-token or -secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, *server, *token, *self, *peer)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if _, err := c.LoadHistory(ctx, 1, constants.DEFAULT_PAGE_LIMIT); err != nil {
		color.Warn.Printf("load history failed: %v\n", err)
	}
	printMessages(c.Messages())

	go func() {
		if err := c.Run(ctx); err != nil {
			color.Error.Printf("connection lost: %v\n", err)
		}
		stop()
	}()
	go printEvents(c, *self)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	color.Info.Println("Type a message, or /history [page], /pending, /read <id>, /typing, /quit")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				return
			}
			if err := runCommand(ctx, c, strings.TrimSpace(line)); err != nil {
				color.Error.Println(err)
			}
		}
	}
}

func runCommand(ctx context.Context, c *client.Client, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "/history":
		page := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("bad page %q", fields[1])
			}
			page = n
		}
		rsp, err := c.LoadHistory(ctx, page, constants.DEFAULT_PAGE_LIMIT)
		if err != nil {
			return err
		}
		printMessages(c.Messages())
		color.Info.Printf("page %d/%d, %d messages\n", rsp.Pagination.Page, rsp.Pagination.Pages, rsp.Pagination.Total)
		return nil
	case "/pending":
		printMessages(c.Pending())
		return nil
	case "/read":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /read <messageId>")
		}
		return c.MarkRead(fields[1])
	case "/typing":
		return c.Typing(true)
	}
	_, err := c.Send(line, nil)
	return err
}

func printMessages(msgs []client.MessageView) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Id", "From", "Time", "Text", "Read by"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range msgs {
		id := m.Id
		if m.Optimistic {
			id += " (sending)"
		}
		table.Append([]string{id, m.SenderId, m.CreatedAt.Local().Format("15:04:05"), m.Text, strings.Join(m.ReadBy, ",")})
	}
	table.Render()
}

func printEvents(c *client.Client, self string) {
	for ev := range c.Events() {
		switch ev.Name {
		case constants.EVENT_MESSAGE_NEW:
			var msg respond.MessageRespond
			if json.Unmarshal(ev.Data, &msg) == nil && msg.SenderId != self {
				color.New(color.FgGreen).Printf("[%s] %s\n", msg.SenderId, msg.Text)
			}
		case constants.EVENT_TYPING_START:
			var typing respond.TypingRespond
			if json.Unmarshal(ev.Data, &typing) == nil {
				color.Gray.Printf("%s is typing...\n", typing.From)
			}
		case constants.EVENT_PRESENCE_LIST:
			var list respond.PresenceListRespond
			if json.Unmarshal(ev.Data, &list) == nil {
				color.Cyan.Printf("online: %s\n", strings.Join(list.Users, ", "))
			}
		case constants.EVENT_ERROR:
			var e respond.ErrorRespond
			if json.Unmarshal(ev.Data, &e) == nil {
				color.Error.Println(e.Message)
			}
		}
	}
}
