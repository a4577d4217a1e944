// nbody runs a GPU particle simulation that shares its particle buffers
// between a compute queue and a graphics queue.
package main

import (
	"github.com/spaghettifunk/nbody/cmd"
)

func main() {
	cmd.Execute()
}
