package app

import (
	"fmt"
	"sort"

	"github.com/newthinker/breakwatch/internal/config"
	"github.com/newthinker/breakwatch/internal/notifier"
	"github.com/newthinker/breakwatch/internal/notifier/email"
	"github.com/newthinker/breakwatch/internal/notifier/telegram"
	"github.com/newthinker/breakwatch/internal/notifier/webhook"
)

// NotifiersFromConfig builds the enabled notifiers, ordered by name.
func NotifiersFromConfig(cfgs map[string]config.NotifierConfig) ([]notifier.Notifier, error) {
	names := make([]string, 0, len(cfgs))
	for name, nc := range cfgs {
		if nc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]notifier.Notifier, 0, len(names))
	for _, name := range names {
		nc := cfgs[name]

		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "telegram":
			n = telegram.New("", "")
			params["bot_token"] = nc.BotToken
			params["chat_id"] = nc.ChatID
		case "email":
			n = email.New("", 0, "", "", "", nil)
			params["host"] = nc.Host
			params["port"] = nc.Port
			params["username"] = nc.Username
			params["password"] = nc.Password
			params["from"] = nc.From
			params["to"] = nc.To
		case "webhook":
			n = webhook.New("", nil)
			params["url"] = nc.URL
			params["headers"] = nc.Headers
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}

		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
