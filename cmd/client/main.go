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
	"strings"

	"ripple/infrastructure/push"
	"ripple/infrastructure/socket"
	"ripple/internal/config"
	"ripple/internal/entity"
	"ripple/internal/session"
	"ripple/internal/store"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess := session.New(cfg, push.NewUnsupported())
	if err := sess.Start(ctx, *email, *password); err != nil {
		log.Fatal("start session:", err)
	}
	defer sess.Close()

	identity := sess.Identity()
	log.Printf("signed in as %s (%s)", identity.Name, identity.UserId)
	if sess.PushEnabled() {
		log.Println("push notifications enabled")
	} else {
		log.Printf("push state: %s (in-app notifications only)", sess.PushStatus())
	}

	conv := sess.Conversations()
	if _, err := conv.ListRooms(ctx); err != nil {
		log.Fatal("list rooms:", err)
	}
	printRooms(conv)

	// echo inbound traffic next to the prompt
	sub := sess.Transport().On(socket.EventMessage, func(payload json.RawMessage) {
		var msg entity.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		fmt.Printf("\r%s: %s\n> ", msg.Sender.Name, msg.Content)
	})
	defer sess.Transport().Off(sub)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			return
		case line == "/rooms":
			printRooms(conv)
		case strings.HasPrefix(line, "/open "):
			roomId := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			if err := conv.OpenRoom(ctx, roomId); err != nil {
				fmt.Println("open:", err)
				break
			}
			for _, msg := range conv.Messages(roomId) {
				fmt.Printf("%s: %s\n", msg.Sender.Name, msg.Content)
			}
		case line == "/more":
			roomId := conv.ActiveRoom()
			if roomId == "" {
				fmt.Println("no open room")
				break
			}
			page, hasMore := conv.Cursor(roomId)
			if !hasMore {
				fmt.Println("no older messages")
				break
			}
			if err := conv.FetchMessages(ctx, roomId, page+1); err != nil {
				fmt.Println("fetch:", err)
			}
		case line == "/typing":
			if roomId := conv.ActiveRoom(); roomId != "" {
				if err := conv.NotifyTyping(roomId, true); err != nil {
					fmt.Println("typing:", err)
				}
			}
		case line == "/notifications":
			notif := sess.Notifications()
			if err := notif.FetchPage(ctx, 1, 20, entity.NotificationIndexFilter{}); err != nil {
				fmt.Println("notifications:", err)
				break
			}
			for _, item := range notif.Items() {
				marker := " "
				if !item.Read {
					marker = "*"
				}
				fmt.Printf("%s [%s] %s -> %s\n", marker, item.Type, item.Title,
					store.Route(entity.PushPayload{Data: entity.PushData{
						Type:       string(item.Type),
						PostId:     item.Data.PostId,
						ChatRoomId: item.Data.ChatRoomId,
						SenderId:   item.Data.SenderId,
					}}))
			}
			fmt.Printf("%d unread\n", notif.UnreadCount())
		default:
			roomId := conv.ActiveRoom()
			if roomId == "" {
				fmt.Println("open a room first: /open <roomId>")
				break
			}
			if _, err := conv.SendMessage(ctx, roomId, line, entity.MessageText); err != nil {
				fmt.Println("send:", err)
			}
		}
		fmt.Print("> ")
	}
}

func printRooms(conv store.ConversationStore) {
	for _, room := range conv.Rooms() {
		name := room.Name
		if name == "" && len(room.Participants) > 0 {
			name = room.Participants[0].Name
		}
		line := fmt.Sprintf("%s  %s", room.Id, name)
		if n := conv.UnreadCount(room.Id); n > 0 {
			line += fmt.Sprintf("  (%d unread)", n)
		}
		if room.LastMessage != nil {
			line += "  | " + room.LastMessage.Content
		}
		fmt.Println(line)
	}
}
