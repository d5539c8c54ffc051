/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colbylwilliams/devbox-images/cli"
)

func newGalleryCmd() *cobra.Command {
	var (
		format string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Show the gallery definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configFromContext(cmd))
			if err != nil {
				return err
			}
			gal, err := a.store.LoadGallery()
			if err != nil {
				return err
			}
			if err := cli.NewOutputFormatter(format).WithWriter(cmd.OutOrStdout()).DisplayGallery(gal); err != nil {
				return err
			}
			if !remote {
				return nil
			}

			info, err := a.azure(gal).GetGallery(cmd.Context(), gal)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\nID: %s\n", info.Location, info.ID)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Also show the gallery's location and resource ID from Azure")
	return cmd
}
