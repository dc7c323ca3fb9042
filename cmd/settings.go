package cmd

import (
	"fmt"

	"github.com/EdoardoFiore/madmin-strongswan/config"
)

// ShowSettings prints the effective runtime configuration.
func ShowSettings() {
	fmt.Println(config.GetName(), config.GetVersion())
	fmt.Println("\tLog level:\t", config.GetLogLevel())
	fmt.Println("\tDatabase:\t", config.GetDBPath())
	fmt.Println("\tSwanctl dir:\t", config.GetSwanctlDir())
	fmt.Println("\tVICI socket:\t", config.GetViciSocket())
	fmt.Printf("\tWeb listen:\t %s:%d\n", config.GetListen(), config.GetPort())
	fmt.Println("\tTraffic age:\t", config.GetTrafficAge(), "days")
}
