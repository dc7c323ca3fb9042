package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AppServices defines the interface the bot needs to interact with the main app
type AppServices interface {
	RestartApp()
	GetAllTunnels() ([]model.Tunnel, error)
	GetTunnelByName(name string) (*model.Tunnel, error)
	StartTunnel(id uint) (string, error)
	StopTunnel(id uint) error
	GetTunnelStatus(id uint) (*model.TunnelStatus, error)
	GetTunnelLogs(id uint, lines int) (*service.TunnelLogs, error)
	GetLogs(count int, level string) []string
}

var (
	adminIDs   = make(map[int64]bool)
	services   AppServices
	currentBot *bot.Bot
)

// Start initializes and starts the Telegram bot
func Start(ctx context.Context, config *Config, appServices AppServices) {
	if !config.Enabled {
		log.Println("Telegram bot is disabled.")
		return
	}
	if err := config.Validate(); err != nil {
		log.Printf("Telegram bot not started: %v", err)
		return
	}

	services = appServices

	for _, id := range config.AdminUserIDs {
		adminIDs[id] = true
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(handler),
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		log.Printf("Error creating Telegram bot: %v", err)
		return
	}
	currentBot = b

	log.Println("Telegram bot started.")
	b.Start(ctx)
}

func Stop() {
	if currentBot != nil {
		currentBot.Close(context.Background())
		currentBot = nil
	}
}

// Notify pushes a message to every configured admin. Used by the traffic
// collector when it observes a tunnel change state.
func Notify(text string) {
	if currentBot == nil {
		return
	}
	for id := range adminIDs {
		currentBot.SendMessage(context.Background(), &bot.SendMessageParams{
			ChatID: id,
			Text:   text,
		})
	}
}

func handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	userID := update.Message.From.ID
	if !isAdmin(userID) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "You are not authorized to use this bot.",
		})
		return
	}

	if strings.HasPrefix(update.Message.Text, "/") {
		handleCommand(ctx, b, update.Message)
	}
}

func isAdmin(userID int64) bool {
	_, ok := adminIDs[userID]
	return ok
}

func handleCommand(ctx context.Context, b *bot.Bot, message *models.Message) {
	command, args := parseCommand(message.Text)

	switch command {
	case "/start":
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: message.Chat.ID,
			Text:   "Welcome to MADMIN StrongSwan Admin Bot. Send /help to see available commands.",
		})
	case "/help":
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: message.Chat.ID,
			Text: "Available commands:\n" +
				"/tunnels\n" +
				"/status <name>\n" +
				"/start_tunnel <name>\n" +
				"/stop_tunnel <name>\n" +
				"/tunnel_logs <name> [lines]\n" +
				"/logs [count] [level]\n" +
				"/restart",
		})
	case "/tunnels":
		handleTunnels(ctx, b, message)
	case "/status":
		handleStatus(ctx, b, message, args)
	case "/start_tunnel":
		handleStartTunnel(ctx, b, message, args)
	case "/stop_tunnel":
		handleStopTunnel(ctx, b, message, args)
	case "/tunnel_logs":
		handleTunnelLogs(ctx, b, message, args)
	case "/logs":
		handleLogs(ctx, b, message, args)
	case "/restart":
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Restarting madmin service..."})
		services.RestartApp()
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: message.Chat.ID,
			Text:   "Unknown command. Send /help to see available commands.",
		})
	}
}

func handleTunnels(ctx context.Context, b *bot.Bot, message *models.Message) {
	tunnels, err := services.GetAllTunnels()
	if err != nil {
		log.Printf("Error getting tunnels: %v", err)
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Error getting tunnels."})
		return
	}

	var response strings.Builder
	response.WriteString("IPsec tunnels:\n")
	if len(tunnels) == 0 {
		response.WriteString("No tunnels configured.\n")
	}
	for _, t := range tunnels {
		enabled := "disabled"
		if t.Enabled {
			enabled = "enabled"
		}
		response.WriteString(fmt.Sprintf("- %s -> %s [%s, %s]\n", t.Name, t.RemoteAddress, enabled, t.Status))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: response.String()})
}

func tunnelFromArgs(ctx context.Context, b *bot.Bot, message *models.Message, args []string, usage string) *model.Tunnel {
	if len(args) < 1 {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: usage})
		return nil
	}
	tunnel, err := services.GetTunnelByName(args[0])
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Tunnel '" + args[0] + "' not found."})
		return nil
	}
	return tunnel
}

func handleStatus(ctx context.Context, b *bot.Bot, message *models.Message, args []string) {
	tunnel := tunnelFromArgs(ctx, b, message, args, "Usage: /status <name>")
	if tunnel == nil {
		return
	}

	status, err := services.GetTunnelStatus(tunnel.ID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Cannot determine status: " + err.Error()})
		return
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("Tunnel %s: %s\n", tunnel.Name, status.IkeState))
	if status.IkeState == "ESTABLISHED" {
		response.WriteString(fmt.Sprintf("%s <-> %s, up for %ds\n", status.LocalHost, status.RemoteHost, status.Established))
	}
	for _, child := range status.ChildSas {
		response.WriteString(fmt.Sprintf("- %s [%s] in %d B / out %d B\n", child.Name, child.State, child.BytesIn, child.BytesOut))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: response.String()})
}

func handleStartTunnel(ctx context.Context, b *bot.Bot, message *models.Message, args []string) {
	tunnel := tunnelFromArgs(ctx, b, message, args, "Usage: /start_tunnel <name>")
	if tunnel == nil {
		return
	}
	status, err := services.StartTunnel(tunnel.ID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Failed to start tunnel: " + err.Error()})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Tunnel " + tunnel.Name + ": " + status})
}

func handleStopTunnel(ctx context.Context, b *bot.Bot, message *models.Message, args []string) {
	tunnel := tunnelFromArgs(ctx, b, message, args, "Usage: /stop_tunnel <name>")
	if tunnel == nil {
		return
	}
	if err := services.StopTunnel(tunnel.ID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Failed to stop tunnel: " + err.Error()})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Tunnel " + tunnel.Name + " terminated."})
}

func handleTunnelLogs(ctx context.Context, b *bot.Bot, message *models.Message, args []string) {
	tunnel := tunnelFromArgs(ctx, b, message, args, "Usage: /tunnel_logs <name> [lines]")
	if tunnel == nil {
		return
	}
	lines := 50
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			lines = n
		}
	}

	logs, err := services.GetTunnelLogs(tunnel.ID, lines)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Failed to get logs: " + err.Error()})
		return
	}

	var response strings.Builder
	for _, diag := range logs.Errors {
		response.WriteString("! " + diag.Description + "\n")
	}
	if len(logs.Logs) == 0 {
		response.WriteString("No log lines found.")
	} else {
		response.WriteString(strings.Join(logs.Logs, "\n"))
	}
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: response.String()})
}

func handleLogs(ctx context.Context, b *bot.Bot, message *models.Message, args []string) {
	count := 10
	level := "debug"

	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			count = n
		}
	}
	if len(args) > 1 {
		level = args[1]
	}

	logs := services.GetLogs(count, level)
	if len(logs) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "No logs found."})
		return
	}

	response := strings.Join(logs, "\n")
	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: message.Chat.ID, Text: "Logs:\n" + response})
}

func parseCommand(text string) (string, []string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
