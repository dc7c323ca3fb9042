package telegram

import "errors"

type Config struct {
	BotToken     string  `json:"bot_token"`
	AdminUserIDs []int64 `json:"admin_user_ids"`
	Enabled      bool    `json:"enabled"`
}

// Validate reports whether the config is usable for starting the bot.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot_token is empty")
	}
	if len(c.AdminUserIDs) == 0 {
		return errors.New("admin_user_ids is empty, nobody would be able to use the bot")
	}
	return nil
}
