package logger

import (
	"io"
	"log"
	"strings"
	"sync"

	"stockdash/internal/pkg/text"
)

// maxDumpBytes caps each dumped section.
const maxDumpBytes = 64 << 10

var (
	httpMu          sync.Mutex
	httpLog         *log.Logger
	httpDumpPayload bool
)

// SetHTTPWriter routes backend request/response dumps to w. A nil writer
// disables the dump channel.
func SetHTTPWriter(w io.Writer) {
	httpMu.Lock()
	defer httpMu.Unlock()
	if w == nil {
		httpLog = nil
		return
	}
	httpLog = log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}

func EnableHTTPPayloadDump(enabled bool) {
	httpMu.Lock()
	httpDumpPayload = enabled
	httpMu.Unlock()
}

func httpDumpTarget() (*log.Logger, bool) {
	httpMu.Lock()
	defer httpMu.Unlock()
	return httpLog, httpDumpPayload
}

func logHTTP(kind, method, url string, sections [][2]string) {
	l, _ := httpDumpTarget()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[HTTP][")
	b.WriteString(kind)
	b.WriteString("] ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(url)
	b.WriteString("\n")
	for _, sec := range sections {
		body := text.Truncate(strings.TrimSpace(sec[1]), maxDumpBytes)
		if body == "" {
			continue
		}
		b.WriteString("--- ")
		b.WriteString(sec[0])
		b.WriteString(" ---\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogHTTPRequest records an outgoing backend call. The body is only written
// when payload dumping is enabled.
func LogHTTPRequest(method, url string, body []byte) {
	_, dump := httpDumpTarget()
	var sections [][2]string
	if dump {
		sections = append(sections, [2]string{"BODY", string(body)})
	}
	logHTTP("request", method, url, sections)
}

func LogHTTPResponse(method, url, status string, body []byte) {
	_, dump := httpDumpTarget()
	sections := [][2]string{{"STATUS", status}}
	if dump {
		sections = append(sections, [2]string{"BODY", string(body)})
	}
	logHTTP("response", method, url, sections)
}
