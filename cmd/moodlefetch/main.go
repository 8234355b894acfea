package main

import (
	"moodlefetch/cmd/moodlefetch/commands"
	"moodlefetch/internal/components/serviceutil"
)

func main() {
	err := commands.ExecuteContext(serviceutil.SignalContext())
	if err != nil {
		serviceutil.Fatal("moodlefetch failed", err)
	}
}
