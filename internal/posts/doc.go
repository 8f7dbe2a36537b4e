// Package posts stores short text updates on uploader channel pages.
package posts
