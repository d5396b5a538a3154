// Package seed provisions tenant permission and role universes from a YAML
// manifest.
//
//	tenants:
//	  - name: acme
//	    permissions:
//	      - invoices.read
//	      - invoices.write
//	    roles:
//	      - name: billing
//	        permissions: [invoices.read, invoices.write]
//
// Apply is idempotent: rows are find-or-create and role permission sets are
// synced to the declared state, so the manifest can run on every deploy.
package seed
