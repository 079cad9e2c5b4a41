package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fogleman/gg"

	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/actuator"
	"github.com/tigerbot-team/tigerbot/go-teleop/pkg/screen"
)

var CLI struct {
	Device string `default:"/dev/fb1" help:"Framebuffer to draw on."`
	PNG    string `help:"Render one page to this PNG file instead of the framebuffer, then exit."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("screentests"),
		kong.Description("Show made-up steering/speed values on the status screen."))

	if CLI.PNG != "" {
		img := screen.Render(actuator.State{SteeringAngle: 45, MotorSpeed: -30}, "TEST")
		if err := gg.SavePNG(CLI.PNG, img); err != nil {
			fmt.Println("Failed to write PNG:", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	scr := screen.New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		scr.Loop(ctx, CLI.Device)
	}()

	fmt.Println(`Enter "<angle> <speed>" to show, or any other text to set the notice line.`)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 2 {
			angle, aErr := strconv.Atoi(parts[0])
			speed, sErr := strconv.Atoi(parts[1])
			if aErr == nil && sErr == nil {
				scr.Publish(actuator.State{SteeringAngle: angle, MotorSpeed: speed})
				continue
			}
		}
		scr.SetNotice(strings.TrimSpace(line))
	}
	cancel()
	<-done
}
