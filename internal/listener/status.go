// SPDX-License-Identifier: MPL-2.0

package listener

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// RenderText writes st as a plain-text report.
func RenderText(w io.Writer, st Status) error {
	var b strings.Builder
	fmt.Fprintf(&b, "service:  %s\n", st.Name)
	fmt.Fprintf(&b, "instance: %s\n", st.ID)
	fmt.Fprintf(&b, "state:    %s\n", st.State)
	fmt.Fprintf(&b, "uptime:   %s\n", st.Uptime.Round(time.Second))
	if len(st.Addresses) > 0 {
		b.WriteString("addresses:\n")
		for _, a := range st.Addresses {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	if len(st.Health) > 0 {
		b.WriteString("health:\n")
		for _, h := range st.Health {
			fmt.Fprintf(&b, "  %-8s %-10s %s\n", h.Severity, h.Category, h.Description)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
