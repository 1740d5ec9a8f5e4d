package names

// Generated names index into these lists. Any edit to either list, including
// appending, changes the name of almost every account.
var adjectives = [...]string{
	"Amber", "Brave", "Bright", "Calm", "Clever", "Cosmic", "Curious", "Daring",
	"Eager", "Fancy", "Fearless", "Gentle", "Golden", "Happy", "Honest", "Humble",
	"Jolly", "Kind", "Lively", "Lucky", "Mellow", "Mighty", "Misty", "Noble",
	"Plucky", "Polite", "Proud", "Quick", "Quiet", "Rapid", "Rustic", "Scarlet",
	"Serene", "Silent", "Silver", "Sleepy", "Smart", "Snowy", "Sunny", "Swift",
	"Tidy", "Tiny", "Vivid", "Wandering", "Warm", "Wild", "Wise", "Witty",
	"Zesty", "Breezy", "Cheerful", "Dapper", "Electric", "Frosty", "Glowing", "Hidden",
	"Jazzy", "Lunar", "Nimble", "Radiant", "Solar", "Stellar", "Velvet", "Whimsical",
}

var animals = [...]string{
	"Otter", "Falcon", "Panda", "Fox", "Koala", "Lynx", "Heron", "Badger",
	"Beaver", "Bison", "Camel", "Cheetah", "Crane", "Dolphin", "Eagle", "Ferret",
	"Gecko", "Giraffe", "Hedgehog", "Ibis", "Jaguar", "Kestrel", "Lemur", "Llama",
	"Magpie", "Marmot", "Moose", "Narwhal", "Ocelot", "Owl", "Pelican", "Penguin",
	"Puffin", "Quokka", "Rabbit", "Raccoon", "Raven", "Salmon", "Seal", "Sparrow",
	"Squirrel", "Swan", "Tapir", "Tiger", "Toucan", "Turtle", "Walrus", "Weasel",
	"Whale", "Wolf", "Wombat", "Yak", "Zebra", "Alpaca", "Armadillo", "Coyote",
	"Dingo", "Flamingo", "Hamster", "Iguana", "Kangaroo", "Mongoose", "Orca", "Platypus",
	"Robin", "Starling", "Stork",
}
