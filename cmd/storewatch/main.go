package main

import (
	"storewatch-backend/cmd/storewatch/commands"
	"storewatch-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
