package rfclient

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// RunConsole implements the interactive `add`/`remove`/`list`/`exit`
// console, reading commands from in and writing prompts and output to out.
func RunConsole(ctrl *Controller, in io.Reader, out io.Writer) {
	prompt := color.New(color.FgCyan).SprintFunc()
	errColor := color.New(color.FgRed).SprintFunc()
	okColor := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintln(out, "Commands:\n  add <server_port> <client_addr> <client_port>\n  remove <server_port>\n  list\n  exit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt("> "))
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "add":
			if len(fields) != 4 {
				fmt.Fprintln(out, "Usage: add <server_port> <client_addr> <client_port>")
				continue
			}
			srvp, err1 := strconv.Atoi(fields[1])
			clp, err2 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil {
				fmt.Fprintln(out, "Usage: add <server_port> <client_addr> <client_port>")
				continue
			}
			if err := ctrl.Listen(srvp, fields[2], clp); err != nil {
				fmt.Fprintln(out, errColor(err.Error()))
				continue
			}
			fmt.Fprintln(out, okColor(fmt.Sprintf("Requested LISTEN %d -> %s:%d", srvp, fields[2], clp)))

		case "remove":
			if len(fields) != 2 {
				fmt.Fprintln(out, "Usage: remove <server_port>")
				continue
			}
			srvp, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintln(out, "Usage: remove <server_port>")
				continue
			}
			if err := ctrl.Close(srvp); err != nil {
				fmt.Fprintln(out, errColor(err.Error()))
				continue
			}
			fmt.Fprintln(out, okColor(fmt.Sprintf("Requested CLOSE %d", srvp)))

		case "list":
			mappings := ctrl.Mappings.List()
			if len(mappings) == 0 {
				fmt.Fprintln(out, "No mappings")
				continue
			}
			for _, m := range mappings {
				fmt.Fprintf(out, "server:%d -> %s:%d\n", m.ServerPort, m.ClientAddr, m.ClientPort)
			}

		case "exit":
			return

		default:
			fmt.Fprintln(out, "Unknown. Commands:\n  add <server_port> <client_addr> <client_port>\n  remove <server_port>\n  list\n  exit")
		}
	}
}
