package mossgarden

func Banner() string {
	return "" +
		"                                                  \n" +
		"               .-~~~~-.        .-~~~-.            \n" +
		"            .-~  o  ,  ~-.  .-~  ,  ~-.           \n" +
		"           (  ,   *   .   )(   .   *   )          \n" +
		"            `-._  .  _.-'  `-._ . _.-'            \n" +
		"                `~~~~'         `~~~'              \n" +
		"                                                  \n" +
		"        M O S S G A R D E N   ~   stones that grow\n\n"
}
