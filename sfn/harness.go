package sfn

// goMainSource is the harness wrapped around a user's app.go. It listens on
// a loopback TCP socket, prints its address as the first line of stdout (the
// line Supervisor.Run waits for), then speaks the same length-prefixed JSON
// framing as the rest of the fabric, delegating each request's body to the
// Handle function app.go must define. This is the framework-provided runtime
// counterpart of serverless.rs's embedded GO_MAIN template; the body of
// Handle itself is the user's serverless application code and stays out of
// scope here.
const goMainSource = `package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
)

type requestHeaders struct {
	SfnName    string ` + "`json:\"sfn_name\"`" + `
	TraceID    string ` + "`json:\"trace_id\"`" + `
	RequestID  string ` + "`json:\"request_id\"`" + `
	BodyFormat string ` + "`json:\"body_format\"`" + `
	Extension  string ` + "`json:\"extension\"`" + `
}

type responseHeaders struct {
	StatusCode uint16 ` + "`json:\"status_code\"`" + `
	ErrorMsg   string ` + "`json:\"error_msg\"`" + `
	BodyFormat string ` + "`json:\"body_format\"`" + `
	Extension  string ` + "`json:\"extension\"`" + `
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, b []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	headerBytes, err := readFrame(r)
	if err != nil {
		return
	}
	var req requestHeaders
	if err := json.Unmarshal(headerBytes, &req); err != nil {
		return
	}

	body, err := readFrame(r)
	if err != nil {
		return
	}

	respBody, handleErr := Handle(body)

	resp := responseHeaders{StatusCode: 200, BodyFormat: "bytes"}
	if handleErr != nil {
		resp.StatusCode = 500
		resp.ErrorMsg = handleErr.Error()
		resp.BodyFormat = "null"
	}

	respHeaderBytes, _ := json.Marshal(resp)
	if err := writeFrame(conn, respHeaderBytes); err != nil {
		return
	}
	if resp.StatusCode == 200 {
		_ = writeFrame(conn, respBody)
	}
}

func main() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ln.Addr().String())
	os.Stdout.Sync()

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("accept error: %v", err)
			continue
		}
		go handleConn(conn)
	}
}
`

// goModSource is the default go.mod used when the serverless directory
// doesn't ship its own.
const goModSource = `module yomo-serverless

go 1.24
`
