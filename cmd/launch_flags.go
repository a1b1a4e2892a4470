package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/spf13/cobra"
)

func addLaunchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("profile", "", "Profile id (default: \"default\")")
	f.String("fingerprint", "", "JSON file holding a custom fingerprint")
	f.String("proxy", "", "Proxy as host:port")
	f.String("proxy-user", "", "Proxy username")
	f.String("proxy-pass", "", "Proxy password")
	f.StringSlice("extension", nil, "Absolute path of an unpacked extension (repeatable)")
}

func launchSpecFromFlags(cmd *cobra.Command) (models.LaunchSpec, error) {
	var spec models.LaunchSpec
	f := cmd.Flags()

	spec.ProfileID, _ = f.GetString("profile")
	spec.ExtensionPaths, _ = f.GetStringSlice("extension")

	if path, _ := f.GetString("fingerprint"); path != "" {
		fp, err := readFingerprint(path)
		if err != nil {
			return spec, err
		}
		spec.Fingerprint = fp
	}

	if addr, _ := f.GetString("proxy"); addr != "" {
		p, err := parseProxy(addr)
		if err != nil {
			return spec, err
		}
		p.Username, _ = f.GetString("proxy-user")
		p.Password, _ = f.GetString("proxy-pass")
		spec.Proxy = p
	}
	return spec, nil
}

func parseProxy(addr string) (*models.Proxy, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid --proxy %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --proxy port %q", portStr)
	}
	return &models.Proxy{Host: host, Port: port}, nil
}

func readFingerprint(path string) (*models.Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	var fp models.Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrGeneration, path, err)
	}
	return &fp, nil
}
