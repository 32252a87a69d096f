package main

import (
	"github.com/shinchan79/peerpoint/internal/app"
	"github.com/shinchan79/peerpoint/internal/config"
)

func main() {
	app.Go(config.Load())
}
