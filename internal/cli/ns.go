package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Namespace management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List namespaces with item and interaction counts",
		Run:   runNSList,
	}

	dropCmd := &cobra.Command{
		Use:   "drop [ns]",
		Short: "Delete everything stored for a namespace",
		Args:  cobra.ExactArgs(1),
		Run:   runNSDrop,
	}

	nsCmd.AddCommand(listCmd, dropCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.ListNamespaces(cmd.Context())
	if err != nil {
		exitErr("list namespaces", err)
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

func runNSDrop(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DropNamespace(cmd.Context(), args[0]); err != nil {
		exitErr("drop namespace", err)
	}
	fmt.Printf(`{"ok":true,"ns":%q}`+"\n", args[0])
}
