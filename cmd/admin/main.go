package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"janitorbot/backend/internal/storage"
)

func main() {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chats":
		listChats(storageSvc)
	case "settings":
		chatID := mustChatID(2, "Usage: admin settings <chat_id>")
		showSettings(storageSvc, chatID)
	case "add-filter":
		chatID := mustChatID(2, "Usage: admin add-filter <chat_id> <pattern>")
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin add-filter <chat_id> <pattern>")
			os.Exit(1)
		}
		addFilter(storageSvc, chatID, strings.Join(os.Args[3:], " "))
	case "remove-filter":
		chatID := mustChatID(2, "Usage: admin remove-filter <chat_id> <pattern>")
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin remove-filter <chat_id> <pattern>")
			os.Exit(1)
		}
		removeFilter(storageSvc, chatID, strings.Join(os.Args[3:], " "))
	case "reset":
		chatID := mustChatID(2, "Usage: admin reset <chat_id>")
		if err := storageSvc.DeleteChatSettings(chatID); err != nil {
			log.Fatalf("Error resetting chat %d: %v", chatID, err)
		}
		fmt.Printf("Settings for chat %d have been reset.\n", chatID)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Usage: admin <command> [args]

Commands:
  chats                              list configured chats
  settings <chat_id>                 show a chat's moderation settings
  add-filter <chat_id> <pattern>     append a filter pattern
  remove-filter <chat_id> <pattern>  remove a filter pattern
  reset <chat_id>                    delete a chat's settings row`)
}

func mustChatID(arg int, usage string) int64 {
	if len(os.Args) <= arg {
		fmt.Println(usage)
		os.Exit(1)
	}
	chatID, err := strconv.ParseInt(os.Args[arg], 10, 64)
	if err != nil {
		fmt.Println("Invalid chat ID. Please provide an integer.")
		os.Exit(1)
	}
	return chatID
}

func listChats(s storage.Storage) {
	rows, err := s.ListChatSettings()
	if err != nil {
		log.Fatalf("Error listing chats: %v", err)
	}
	if len(rows) == 0 {
		fmt.Println("No configured chats.")
		return
	}
	for _, row := range rows {
		fmt.Printf("%d\tjanitor=%t channel_filter=%t forward_spam=%t filters=%d whitelist=%d\n",
			row.ChatID, row.JanitorEnabled, row.ChannelFilterEnabled, row.ForwardSpamProtectionEnabled,
			len(row.FilterPatterns), len(row.ChannelWhitelist))
	}
}

func showSettings(s storage.Storage, chatID int64) {
	row, err := s.GetChatSettings(chatID)
	if err != nil {
		log.Fatalf("Error loading chat %d: %v", chatID, err)
	}
	fmt.Printf("Chat %d\n", row.ChatID)
	fmt.Printf("  janitor:                 %t\n", row.JanitorEnabled)
	fmt.Printf("  channel filter:          %t\n", row.ChannelFilterEnabled)
	fmt.Printf("  forward spam protection: %t\n", row.ForwardSpamProtectionEnabled)
	fmt.Println("  filter patterns:")
	for i, pattern := range row.FilterPatterns {
		fmt.Printf("    %d. %s\n", i+1, pattern)
	}
	fmt.Println("  whitelisted channels:")
	for _, entry := range row.ChannelWhitelist {
		fmt.Printf("    %s\n", entry)
	}
}

func addFilter(s storage.Storage, chatID int64, pattern string) {
	row, err := s.GetChatSettings(chatID)
	if err != nil {
		log.Fatalf("Error loading chat %d: %v", chatID, err)
	}
	for _, existing := range row.FilterPatterns {
		if existing == pattern {
			fmt.Println("Pattern already present.")
			return
		}
	}
	row.FilterPatterns = append(row.FilterPatterns, pattern)
	if err := s.SaveChatSettings(row); err != nil {
		log.Fatalf("Error saving chat %d: %v", chatID, err)
	}
	fmt.Printf("Added pattern to chat %d.\n", chatID)
}

func removeFilter(s storage.Storage, chatID int64, pattern string) {
	row, err := s.GetChatSettings(chatID)
	if err != nil {
		log.Fatalf("Error loading chat %d: %v", chatID, err)
	}
	for i, existing := range row.FilterPatterns {
		if existing == pattern {
			row.FilterPatterns = append(row.FilterPatterns[:i], row.FilterPatterns[i+1:]...)
			if err := s.SaveChatSettings(row); err != nil {
				log.Fatalf("Error saving chat %d: %v", chatID, err)
			}
			fmt.Printf("Removed pattern from chat %d.\n", chatID)
			return
		}
	}
	fmt.Println("Pattern not found.")
}
