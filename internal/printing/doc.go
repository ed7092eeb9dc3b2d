// Package printing hands stored files to the host's print and open
// commands.
//
// Print sends word-processor and PDF documents to the system print spooler
// (lp by default). Open launches the desktop viewer (xdg-open by default)
// for office documents and PDFs so the user can check a file before
// printing.
package printing
