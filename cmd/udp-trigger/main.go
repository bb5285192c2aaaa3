// cmd/udp-trigger/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

// Simula o botão da quadra: envia o comando e imprime a resposta ACK/NACK.
func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "endereço do listener")
	timeout := flag.Duration("timeout", 5*time.Second, "tempo máximo esperando resposta")
	flag.Parse()

	cmd := "CREATE_CLIP"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("erro ao abrir socket para %s: %v", *addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(cmd)); err != nil {
		log.Fatalf("erro ao enviar comando: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(*timeout))

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("sem resposta de %s: %v", *addr, err)
	}
	fmt.Println(string(buf[:n]))
	if len(buf[:n]) >= 4 && string(buf[:4]) == "NACK" {
		os.Exit(1)
	}
}
