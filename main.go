package main

import "github.com/hollowdene/mojorun/cmd"

func main() {
	cmd.Execute()
}
