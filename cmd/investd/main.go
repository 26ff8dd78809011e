package main

import (
	"log"

	"stakebank/services/investd"
)

func main() {
	if err := investd.Run(); err != nil {
		log.Fatalf("investd: %v", err)
	}
}
