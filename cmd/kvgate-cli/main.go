package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kvgate/kvgate"
	"github.com/kvgate/kvgate/resp"
)

func main() {
	addrsFlag := flag.String("addrs", "localhost:6379", "comma-separated node addresses")
	cluster := flag.Bool("cluster", false, "connect in cluster mode")
	resp3 := flag.Bool("resp3", false, "negotiate protocol version 3")
	password := flag.String("password", "", "authentication password")
	username := flag.String("username", "", "authentication username")
	timeout := flag.Duration("timeout", 0, "per-request timeout (default 250ms)")
	flag.Parse()

	request := &kvgate.ConnectionRequest{
		ClusterModeEnabled: *cluster,
		UseRESP3:           *resp3,
		RequestTimeout:     *timeout,
	}
	for _, raw := range strings.Split(*addrsFlag, ",") {
		addr, err := parseAddress(strings.TrimSpace(raw))
		if err != nil {
			fmt.Printf("Invalid address %q: %v\n", raw, err)
			os.Exit(1)
		}
		request.Addresses = append(request.Addresses, addr)
	}
	if *password != "" {
		request.Auth = &kvgate.AuthInfo{Username: *username, Password: *password}
	}

	client, err := kvgate.NewClient(context.Background(), request)
	if err != nil {
		fmt.Printf("Failed to create client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("kvgate CLI")
	fmt.Println("==========")
	fmt.Println("Type any command (e.g. GET key, SET key value, HGETALL hash), 'stats', or 'quit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch strings.ToLower(parts[0]) {
		case "quit", "exit":
			fmt.Println("Goodbye!")
			return
		case "stats":
			handleStats(client)
			continue
		}

		handleCommand(client, parts)
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

func parseAddress(raw string) (kvgate.NodeAddress, error) {
	host, portStr, found := strings.Cut(raw, ":")
	if !found {
		return kvgate.NodeAddress{Host: raw}, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return kvgate.NodeAddress{}, err
	}
	return kvgate.NodeAddress{Host: host, Port: uint16(port)}, nil
}

func handleCommand(client *kvgate.Client, parts []string) {
	cmd := kvgate.NewCommand(parts[0], parts[1:]...)

	start := time.Now()
	value, err := client.SendCommand(context.Background(), cmd, nil)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		return
	}
	fmt.Printf("%s (took %v)\n", renderValue(value, 0), duration)
}

func renderValue(v resp.Value, depth int) string {
	indent := strings.Repeat("  ", depth)
	switch v.Kind {
	case resp.KindNil:
		return indent + "(nil)"
	case resp.KindInt:
		return indent + fmt.Sprintf("(integer) %d", v.Int)
	case resp.KindDouble:
		return indent + fmt.Sprintf("(double) %g", v.Double)
	case resp.KindBool:
		return indent + fmt.Sprintf("(boolean) %t", v.Bool)
	case resp.KindBulk:
		return indent + fmt.Sprintf("%q", string(v.Bulk))
	case resp.KindStatus:
		return indent + v.Status
	case resp.KindArray:
		if len(v.Array) == 0 {
			return indent + "(empty array)"
		}
		lines := make([]string, len(v.Array))
		for i, item := range v.Array {
			lines[i] = fmt.Sprintf("%s%d) %s", indent, i+1, strings.TrimLeft(renderValue(item, depth), " "))
		}
		return strings.Join(lines, "\n")
	case resp.KindMap:
		if len(v.Map) == 0 {
			return indent + "(empty map)"
		}
		lines := make([]string, len(v.Map))
		for i, entry := range v.Map {
			lines[i] = fmt.Sprintf("%s%s => %s",
				indent,
				strings.TrimLeft(renderValue(entry.Key, depth), " "),
				strings.TrimLeft(renderValue(entry.Value, depth), " "))
		}
		return strings.Join(lines, "\n")
	}
	return indent + "(unknown)"
}

func handleStats(client *kvgate.Client) {
	stats := client.Stats()
	fmt.Println("Client Statistics:")
	fmt.Printf("  Commands: %d\n", stats.Commands)
	fmt.Printf("  Pipelines: %d\n", stats.Pipelines)
	fmt.Printf("  Timeouts: %d\n", stats.Timeouts)
	fmt.Printf("  Conversion Errors: %d\n", stats.ConversionErrors)
	fmt.Printf("  Errors: %d\n", stats.Errors)
}
