package banner

import (
	"fmt"

	"candorbox/pkg/config"
)

const banner = `
 ██████╗ █████╗ ███╗   ██╗██████╗  ██████╗ ██████╗ ██████╗  ██████╗ ██╗  ██╗
██╔════╝██╔══██╗████╗  ██║██╔══██╗██╔═══██╗██╔══██╗██╔══██╗██╔═══██╗╚██╗██╔╝
██║     ███████║██╔██╗ ██║██║  ██║██║   ██║██████╔╝██████╔╝██║   ██║ ╚███╔╝
██║     ██╔══██║██║╚██╗██║██║  ██║██║   ██║██╔══██╗██╔══██╗██║   ██║ ██╔██╗
╚██████╗██║  ██║██║ ╚████║██████╔╝╚██████╔╝██║  ██║██████╔╝╚██████╔╝██╔╝ ██╗
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═══╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝
`

// Print writes the startup banner with runtime info and readiness
// checks for operators.
func Print(addr, dbPath string, cfg *config.Config, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}

	fmt.Println("\n== Production? =================================================")
	if cfg == nil {
		return
	}
	be := len(cfg.Security.APIKeys.Backend)
	fe := len(cfg.Security.APIKeys.Frontend)
	ak := len(cfg.Security.APIKeys.Admin)
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for workspace backends)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for member clients)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	if n := len(cfg.Security.Keyring); n > 1 {
		fmt.Printf("- Master keys: %d versions (rotation available)\n", n)
	} else {
		fmt.Printf("- Master keys: %d version\n", n)
	}
	if cfg.Security.AuditDir != "" {
		fmt.Printf("- Audit log: %s\n", cfg.Security.AuditDir)
	} else {
		fmt.Println("- Audit log: stderr only (set security.audit_dir for a file sink)")
	}
	fmt.Printf("- k-anonymity floor: %d\n", cfg.Policy.KThresholdMin)
	fmt.Printf("- Over-cap grace: %d days\n", cfg.Policy.GracePeriodDays)

	fmt.Println("\n== Logs: =================================================")
}
