package api

import (
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type MachineInfo struct {
	ClientIP  string `json:"client_ip"`
	Hostname  string `json:"hostname"`
	MachineIP string `json:"machine_ip"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

func (a *ApiManagerCtx) machineInfo(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		a.logger.Warn().Err(err).Msg("unable to get hostname")
	}

	writeJSON(w, http.StatusOK, MachineInfo{
		ClientIP:  clientIP(r),
		Hostname:  hostname,
		MachineIP: machineIP(hostname),
		OS:        cases.Title(language.Und).String(runtime.GOOS),
		Arch:      runtime.GOARCH,
	})
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func machineIP(hostname string) string {
	if hostname == "" {
		return ""
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
