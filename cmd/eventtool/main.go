// Command eventtool converts post events between their JSON form and the
// protobuf binary carried on the Kafka and NATS feeds.
//
//	echo '{"type":"post.created","post_id":1,...}' | eventtool -mode encode -out hex
//	echo 0a1b... | eventtool -mode decode -in hex
package main

import (
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"yatube/internal/event"
)

func main() {
	mode := flag.String("mode", "encode", "Mode: 'encode' or 'decode'")
	inputFormat := flag.String("in", "json", "Input format: 'json', 'hex', 'base64'")
	outputFormat := flag.String("out", "hex", "Output format: 'hex', 'base64', 'json'")
	flag.Parse()

	inputData, err := io.ReadAll(os.Stdin)
	if err != nil {
		fail("Error reading stdin: %v", err)
	}
	input := strings.TrimSpace(string(inputData))

	var out string
	switch *mode {
	case "encode":
		out, err = encode(input, *outputFormat)
	case "decode":
		out, err = decode(input, *inputFormat)
	default:
		err = fmt.Errorf("invalid mode: %s. Use 'encode' or 'decode'", *mode)
	}
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(out)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// encode reads a JSON event and prints its protobuf binary.
func encode(jsonInput, outputFormat string) (string, error) {
	e, err := event.UnmarshalJSON([]byte(jsonInput))
	if err != nil {
		return "", err
	}
	data, err := event.Marshal(e)
	if err != nil {
		return "", err
	}

	switch outputFormat {
	case "hex":
		return hex.EncodeToString(data), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	case "json":
		out, err := event.MarshalJSON(e)
		return string(out), err
	default:
		return "", fmt.Errorf("invalid output format: %s. Use 'hex', 'base64' or 'json'", outputFormat)
	}
}

// decode reads a hex or base64 protobuf binary and prints the JSON event.
func decode(input, inputFormat string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch inputFormat {
	case "hex":
		data, err = hex.DecodeString(input)
	case "base64":
		data, err = base64.StdEncoding.DecodeString(input)
	default:
		return "", fmt.Errorf("invalid input format: %s. Use 'hex' or 'base64'", inputFormat)
	}
	if err != nil {
		return "", fmt.Errorf("error decoding input string (%s): %w", inputFormat, err)
	}

	e, err := event.Unmarshal(data)
	if err != nil {
		return "", err
	}
	out, err := event.MarshalJSON(e)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
