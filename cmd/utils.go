package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func printJSON(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		fmt.Println(err)
		return
	}
	var pretty bytes.Buffer
	json.Indent(&pretty, raw, "", "\t")
	fmt.Println(pretty.String())
}
